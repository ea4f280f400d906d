package zkproof

import (
	"fmt"

	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
)

// TransferArgs carries the sender's view of a confidential transfer.
type TransferArgs struct {
	Source                  *elgamal.Keypair
	DestinationPubkey       elgamal.PublicKey
	CurrentAvailable        elgamal.Ciphertext
	CurrentAvailableBalance uint64
	Amount                  uint64
}

// TransferProofs is everything a transfer bundle carries besides the
// instruction itself.
type TransferProofs struct {
	AmountLo            elgamal.GroupedCiphertext
	AmountHi            elgamal.GroupedCiphertext
	NewAvailable        elgamal.Ciphertext
	NewAvailableBalance uint64

	Equality   *EqualityData
	ValidityLo *CiphertextValidityData
	ValidityHi *CiphertextValidityData
	Range      *BatchedRangeData
}

// SplitAmount splits a transfer amount into its 16-bit low and 32-bit high
// parts.
func SplitAmount(amount uint64) (lo, hi uint64) {
	lo = amount & (1<<params.TransferAmountLoBits - 1)
	hi = amount >> params.TransferAmountLoBits
	return lo, hi
}

// SubtractTransferAmount returns available - lo - 2^16*hi, evaluated on the
// source-side handles. Both the prover and the ledger use it so the new
// available ciphertext matches byte for byte.
func SubtractTransferAmount(available elgamal.Ciphertext, lo, hi elgamal.Ciphertext) (elgamal.Ciphertext, error) {
	combined, err := elgamal.CombineLoHi(lo, hi, params.TransferAmountLoBits)
	if err != nil {
		return elgamal.Ciphertext{}, err
	}
	return available.Sub(combined)
}

// BuildTransferProofs encrypts the amount for both parties and proves the
// transfer is valid: both amount parts are well formed, the new available
// balance is what the sender claims, and nothing went negative.
func BuildTransferProofs(args TransferArgs) (*TransferProofs, error) {
	if args.Source == nil || args.Amount == 0 {
		return nil, fmt.Errorf("%w: empty transfer", ErrProofGeneration)
	}
	if args.Amount >= params.MaxDepositAmount {
		return nil, fmt.Errorf("%w: amount %d exceeds %d bits", ErrProofGeneration, args.Amount, params.MaxTransferAmountBits)
	}
	if args.Amount > args.CurrentAvailableBalance {
		return nil, fmt.Errorf("%w: insufficient available balance %d < %d", ErrProofGeneration, args.CurrentAvailableBalance, args.Amount)
	}
	sourcePub := args.Source.PublicKey()
	lo, hi := SplitAmount(args.Amount)

	rLo, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	rHi, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	ctLo, err := elgamal.EncryptGrouped(sourcePub, args.DestinationPubkey, lo, rLo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	ctHi, err := elgamal.EncryptGrouped(sourcePub, args.DestinationPubkey, hi, rHi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	newAvailable, err := SubtractTransferAmount(args.CurrentAvailable, ctLo.Ciphertext(0), ctHi.Ciphertext(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	remaining := args.CurrentAvailableBalance - args.Amount

	rRem, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	eq, err := NewEqualityData(args.Source, newAvailable, remaining, rRem)
	if err != nil {
		return nil, err
	}
	validLo, err := NewCiphertextValidityData(sourcePub, args.DestinationPubkey, ctLo, lo, rLo)
	if err != nil {
		return nil, err
	}
	validHi, err := NewCiphertextValidityData(sourcePub, args.DestinationPubkey, ctHi, hi, rHi)
	if err != nil {
		return nil, err
	}
	rng, err := NewBatchedRangeData([]RangeWitness{
		{Amount: remaining, Opening: rRem, Bits: params.RemainingBalanceBits},
		{Amount: lo, Opening: rLo, Bits: params.TransferAmountLoBits},
		{Amount: hi, Opening: rHi, Bits: params.TransferAmountHiBits},
	})
	if err != nil {
		return nil, err
	}
	return &TransferProofs{
		AmountLo:            ctLo,
		AmountHi:            ctHi,
		NewAvailable:        newAvailable,
		NewAvailableBalance: remaining,
		Equality:            eq,
		ValidityLo:          validLo,
		ValidityHi:          validHi,
		Range:               rng,
	}, nil
}

// WithdrawArgs carries the owner's view of a withdrawal from the available
// balance back to the public balance.
type WithdrawArgs struct {
	Keypair                 *elgamal.Keypair
	CurrentAvailable        elgamal.Ciphertext
	CurrentAvailableBalance uint64
	Amount                  uint64
}

type WithdrawProofs struct {
	NewAvailable        elgamal.Ciphertext
	NewAvailableBalance uint64
	Equality            *EqualityData
	Range               *BatchedRangeData
}

func BuildWithdrawProofs(args WithdrawArgs) (*WithdrawProofs, error) {
	if args.Keypair == nil || args.Amount == 0 {
		return nil, fmt.Errorf("%w: empty withdrawal", ErrProofGeneration)
	}
	if args.Amount > args.CurrentAvailableBalance {
		return nil, fmt.Errorf("%w: insufficient available balance %d < %d", ErrProofGeneration, args.CurrentAvailableBalance, args.Amount)
	}
	newAvailable, err := args.CurrentAvailable.SubAmount(args.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	remaining := args.CurrentAvailableBalance - args.Amount
	r, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	eq, err := NewEqualityData(args.Keypair, newAvailable, remaining, r)
	if err != nil {
		return nil, err
	}
	rng, err := NewBatchedRangeData([]RangeWitness{{Amount: remaining, Opening: r, Bits: params.RemainingBalanceBits}})
	if err != nil {
		return nil, err
	}
	return &WithdrawProofs{
		NewAvailable:        newAvailable,
		NewAvailableBalance: remaining,
		Equality:            eq,
		Range:               rng,
	}, nil
}

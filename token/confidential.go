package token

import (
	"fmt"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
)

// The instructions below consume proofs from sibling verification
// instructions. They are encoded only once the assembler knows where each
// proof landed, so their relative offsets are never guessed by callers.

// ConfigureAccount enables confidential transfers on an account. It consumes
// one pubkey validity proof, which must be for ElGamalPubkey.
type ConfigureAccount struct {
	Account                common.Address
	Mint                   common.Address
	Owner                  common.Address
	ElGamalPubkey          elgamal.PublicKey
	DecryptableZeroBalance aekey.Ciphertext
	MaxPendingCredits      uint64
}

func (c *ConfigureAccount) Name() string    { return TagConfigureAccount.String() }
func (c *ConfigureAccount) ProofCount() int { return 1 }

func (c *ConfigureAccount) Encode(offsets []int8) (types.Instruction, error) {
	if len(offsets) != c.ProofCount() {
		return types.Instruction{}, fmt.Errorf("token: configure needs 1 proof offset, have %d", len(offsets))
	}
	return tokenInstruction(TagConfigureAccount, &ConfigureAccountData{
		ElGamalPubkey:           c.ElGamalPubkey,
		DecryptableZeroBalance:  c.DecryptableZeroBalance,
		MaxPendingBalanceCredit: c.MaxPendingCredits,
		ProofOffset:             OffsetByte(offsets[0]),
	},
		types.Writable(c.Account, false),
		types.ReadOnly(c.Mint, false),
		types.ReadOnly(c.Owner, true),
	), nil
}

// Withdraw moves value from the available balance back to the public
// balance. It consumes an equality proof and a range proof, in that order.
type Withdraw struct {
	Account                        common.Address
	Mint                           common.Address
	Owner                          common.Address
	Amount                         uint64
	Decimals                       uint8
	NewDecryptableAvailableBalance aekey.Ciphertext
}

func (w *Withdraw) Name() string    { return TagWithdraw.String() }
func (w *Withdraw) ProofCount() int { return 2 }

func (w *Withdraw) Encode(offsets []int8) (types.Instruction, error) {
	if len(offsets) != w.ProofCount() {
		return types.Instruction{}, fmt.Errorf("token: withdraw needs 2 proof offsets, have %d", len(offsets))
	}
	return tokenInstruction(TagWithdraw, &WithdrawData{
		Amount:                         w.Amount,
		Decimals:                       w.Decimals,
		NewDecryptableAvailableBalance: w.NewDecryptableAvailableBalance,
		EqualityProofOffset:            OffsetByte(offsets[0]),
		RangeProofOffset:               OffsetByte(offsets[1]),
	},
		types.Writable(w.Account, false),
		types.ReadOnly(w.Mint, false),
		types.ReadOnly(w.Owner, true),
	), nil
}

// Transfer moves value from the source available balance to the
// destination pending balance. It consumes, in order: an equality proof, two
// ciphertext validity proofs (lo, hi) and a batched range proof.
type Transfer struct {
	Source                               common.Address
	Mint                                 common.Address
	Destination                          common.Address
	Owner                                common.Address
	NewSourceDecryptableAvailableBalance aekey.Ciphertext
}

func (t *Transfer) Name() string    { return TagTransfer.String() }
func (t *Transfer) ProofCount() int { return 4 }

func (t *Transfer) Encode(offsets []int8) (types.Instruction, error) {
	if len(offsets) != t.ProofCount() {
		return types.Instruction{}, fmt.Errorf("token: transfer needs 4 proof offsets, have %d", len(offsets))
	}
	return tokenInstruction(TagTransfer, &TransferData{
		NewSourceDecryptableAvailableBalance: t.NewSourceDecryptableAvailableBalance,
		EqualityProofOffset:                  OffsetByte(offsets[0]),
		CiphertextValidityLoOffset:           OffsetByte(offsets[1]),
		CiphertextValidityHiOffset:           OffsetByte(offsets[2]),
		RangeProofOffset:                     OffsetByte(offsets[3]),
	},
		types.Writable(t.Source, false),
		types.ReadOnly(t.Mint, false),
		types.Writable(t.Destination, false),
		types.ReadOnly(t.Owner, true),
	), nil
}

package ledger

import (
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

// proofAt decodes the proof carried by the verification instruction at a
// relative offset. The verification itself happens when that instruction
// executes; a failure there aborts the whole bundle.
func proofAt(ctx *InvokeContext, off uint8, want zkproof.ProofType) (zkproof.ProofData, error) {
	sib, ok := ctx.Sibling(token.Offset(off))
	if !ok || sib.Program != params.ProofProgramID {
		return nil, token.ErrProofInstructionMissing
	}
	proof, err := token.DecodeVerifyProof(sib.Data)
	if err != nil || proof.Type() != want {
		return nil, token.ErrProofInstructionMissing
	}
	return proof, nil
}

func checkRange(r *zkproof.BatchedRangeData, commitments [][elgamal.PointSize]byte, bits []uint8) error {
	if len(r.Commitments) != len(commitments) || len(r.BitLengths) != len(bits) {
		return token.ErrProofContextMismatch
	}
	for i := range commitments {
		if r.Commitments[i] != commitments[i] || r.BitLengths[i] != bits[i] {
			return token.ErrProofContextMismatch
		}
	}
	return nil
}

func loadConfidential(ctx *InvokeContext, i int) (*accountRecord, *token.Account, *token.ConfidentialAccount, error) {
	rec, acc, err := loadTokenAccount(ctx, i)
	if err != nil {
		return nil, nil, nil, err
	}
	ext, err := token.GetConfidentialAccount(rec.Data)
	if err != nil {
		return nil, nil, nil, err
	}
	return rec, acc, ext, nil
}

func storeConfidential(ctx *InvokeContext, i int, rec *accountRecord, acc *token.Account, ext *token.ConfidentialAccount) error {
	if err := token.SetConfidentialAccount(rec.Data, ext); err != nil {
		return err
	}
	return storeTokenAccount(ctx, i, rec, acc)
}

// checkMint verifies that the i-th account is acc's mint and, when decimals
// is non-nil, that the caller agrees on its decimals.
func checkMint(ctx *InvokeContext, i int, acc *token.Account, decimals *uint8) (*token.ConfidentialMint, error) {
	if acc.Mint != ctx.Ix.Account(i) {
		return nil, token.ErrMintMismatch
	}
	mrec, m, err := loadMint(ctx, i)
	if err != nil {
		return nil, err
	}
	if decimals != nil && m.Decimals != *decimals {
		return nil, token.ErrMintDecimalsMismatch
	}
	return token.GetConfidentialMint(mrec.Data)
}

func configureAccount(ctx *InvokeContext, args *token.ConfigureAccountData) error {
	ctx.Consume(params.ConfigureAccountCost)
	rec, acc, err := loadTokenAccount(ctx, 0)
	if err != nil {
		return err
	}
	mintExt, err := checkMint(ctx, 1, acc, nil)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, 2, acc.Owner); err != nil {
		return err
	}
	proof, err := proofAt(ctx, args.ProofOffset, zkproof.ProofTypePubkeyValidity)
	if err != nil {
		return err
	}
	if proof.(*zkproof.PubkeyValidityData).Pubkey != args.ElGamalPubkey {
		return token.ErrProofContextMismatch
	}
	maxCredits := args.MaxPendingBalanceCredit
	if maxCredits == 0 {
		maxCredits = params.DefaultMaxPendingBalanceCreditCounter
	}
	ext := &token.ConfidentialAccount{
		Approved:                    mintExt.AutoApproveNewAccounts,
		ElGamalPubkey:               args.ElGamalPubkey,
		PendingBalanceLo:            elgamal.ZeroCiphertext(),
		PendingBalanceHi:            elgamal.ZeroCiphertext(),
		AvailableBalance:            elgamal.ZeroCiphertext(),
		DecryptableAvailableBalance: args.DecryptableZeroBalance,
		AllowConfidentialCredits:    true,
		AllowNonConfidentialCredits: true,
		MaxPendingBalanceCredits:    maxCredits,
	}
	if err := token.InitExtension(rec.Data, token.AccountTypeAccount, token.ExtensionConfidentialTransferAccount, ext.Pack()); err != nil {
		return err
	}
	ctx.Logf("Configured %v approved=%v", ctx.Ix.Account(0), ext.Approved)
	return ctx.Store(0, rec)
}

func approveAccount(ctx *InvokeContext) error {
	rec, acc, ext, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	mintExt, err := checkMint(ctx, 1, acc, nil)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, 2, mintExt.Authority); err != nil {
		return err
	}
	ext.Approved = true
	return storeConfidential(ctx, 0, rec, acc, ext)
}

func deposit(ctx *InvokeContext, args *token.DepositData) error {
	ctx.Consume(params.DepositCost)
	rec, acc, ext, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	if _, err := checkMint(ctx, 1, acc, &args.Decimals); err != nil {
		return err
	}
	if err := requireOwner(ctx, 2, acc.Owner); err != nil {
		return err
	}
	if args.Amount >= params.MaxDepositAmount {
		return token.ErrMaximumDepositAmountExceeded
	}
	if !ext.Approved {
		return token.ErrAccountNotApproved
	}
	if !ext.AllowConfidentialCredits {
		return token.ErrConfidentialCreditsDisabled
	}
	if acc.Amount < args.Amount {
		return token.ErrInsufficientFunds
	}
	if ext.PendingBalanceCreditCounter >= ext.MaxPendingBalanceCredits {
		return token.ErrMaximumPendingBalanceCreditCounterExceeded
	}
	lo, hi := zkproof.SplitAmount(args.Amount)
	if ext.PendingBalanceLo, err = ext.PendingBalanceLo.AddAmount(lo); err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	if ext.PendingBalanceHi, err = ext.PendingBalanceHi.AddAmount(hi); err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	ext.PendingBalanceCreditCounter++
	ext.PendingBalanceVersion++
	acc.Amount -= args.Amount
	ctx.Logf("Deposit %d, pending credits %d/%d", args.Amount, ext.PendingBalanceCreditCounter, ext.MaxPendingBalanceCredits)
	return storeConfidential(ctx, 0, rec, acc, ext)
}

func withdraw(ctx *InvokeContext, args *token.WithdrawData) error {
	ctx.Consume(params.WithdrawCost)
	rec, acc, ext, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	if _, err := checkMint(ctx, 1, acc, &args.Decimals); err != nil {
		return err
	}
	if err := requireOwner(ctx, 2, acc.Owner); err != nil {
		return err
	}
	if !ext.Approved {
		return token.ErrAccountNotApproved
	}
	proof, err := proofAt(ctx, args.EqualityProofOffset, zkproof.ProofTypeCiphertextCommitmentEquality)
	if err != nil {
		return err
	}
	eq := proof.(*zkproof.EqualityData)
	if proof, err = proofAt(ctx, args.RangeProofOffset, zkproof.ProofTypeBatchedRange); err != nil {
		return err
	}
	rng := proof.(*zkproof.BatchedRangeData)

	newAvailable, err := ext.AvailableBalance.SubAmount(args.Amount)
	if err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	if eq.Pubkey != ext.ElGamalPubkey || eq.Ciphertext != newAvailable {
		return token.ErrProofContextMismatch
	}
	if err := checkRange(rng, [][elgamal.PointSize]byte{eq.Commitment}, []uint8{params.RemainingBalanceBits}); err != nil {
		return err
	}
	if acc.Amount+args.Amount < acc.Amount {
		return token.ErrInvalidInstruction
	}
	ext.AvailableBalance = newAvailable
	ext.DecryptableAvailableBalance = args.NewDecryptableAvailableBalance
	acc.Amount += args.Amount
	return storeConfidential(ctx, 0, rec, acc, ext)
}

func confidentialTransfer(ctx *InvokeContext, args *token.TransferData) error {
	ctx.Consume(params.TransferCost)
	srcRec, src, srcExt, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	if _, err := checkMint(ctx, 1, src, nil); err != nil {
		return err
	}
	if err := requireOwner(ctx, 3, src.Owner); err != nil {
		return err
	}
	if !srcExt.Approved {
		return token.ErrAccountNotApproved
	}
	_, dst, dstExt, err := loadConfidential(ctx, 2)
	if err != nil {
		return err
	}
	if dst.Mint != src.Mint {
		return token.ErrMintMismatch
	}
	if !dstExt.Approved {
		return token.ErrAccountNotApproved
	}
	if !dstExt.AllowConfidentialCredits {
		return token.ErrConfidentialCreditsDisabled
	}
	if dstExt.PendingBalanceCreditCounter >= dstExt.MaxPendingBalanceCredits {
		return token.ErrMaximumPendingBalanceCreditCounterExceeded
	}

	proof, err := proofAt(ctx, args.EqualityProofOffset, zkproof.ProofTypeCiphertextCommitmentEquality)
	if err != nil {
		return err
	}
	eq := proof.(*zkproof.EqualityData)
	if proof, err = proofAt(ctx, args.CiphertextValidityLoOffset, zkproof.ProofTypeCiphertextValidity); err != nil {
		return err
	}
	validLo := proof.(*zkproof.CiphertextValidityData)
	if proof, err = proofAt(ctx, args.CiphertextValidityHiOffset, zkproof.ProofTypeCiphertextValidity); err != nil {
		return err
	}
	validHi := proof.(*zkproof.CiphertextValidityData)
	if proof, err = proofAt(ctx, args.RangeProofOffset, zkproof.ProofTypeBatchedRange); err != nil {
		return err
	}
	rng := proof.(*zkproof.BatchedRangeData)

	parties := [2]elgamal.PublicKey{srcExt.ElGamalPubkey, dstExt.ElGamalPubkey}
	if validLo.Pubkeys != parties || validHi.Pubkeys != parties || eq.Pubkey != srcExt.ElGamalPubkey {
		return token.ErrProofContextMismatch
	}
	newAvailable, err := zkproof.SubtractTransferAmount(srcExt.AvailableBalance, validLo.Ciphertext.Ciphertext(0), validHi.Ciphertext.Ciphertext(0))
	if err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	if eq.Ciphertext != newAvailable {
		return token.ErrProofContextMismatch
	}
	if err := checkRange(rng,
		[][elgamal.PointSize]byte{eq.Commitment, validLo.Ciphertext.Commitment, validHi.Ciphertext.Commitment},
		[]uint8{params.RemainingBalanceBits, params.TransferAmountLoBits, params.TransferAmountHiBits},
	); err != nil {
		return err
	}

	srcExt.AvailableBalance = newAvailable
	srcExt.DecryptableAvailableBalance = args.NewSourceDecryptableAvailableBalance
	if err := storeConfidential(ctx, 0, srcRec, src, srcExt); err != nil {
		return err
	}
	// Reload: source and destination may be the same account.
	dstRec, dst, dstExt, err := loadConfidential(ctx, 2)
	if err != nil {
		return err
	}
	if dstExt.PendingBalanceLo, err = dstExt.PendingBalanceLo.Add(validLo.Ciphertext.Ciphertext(1)); err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	if dstExt.PendingBalanceHi, err = dstExt.PendingBalanceHi.Add(validHi.Ciphertext.Ciphertext(1)); err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	dstExt.PendingBalanceCreditCounter++
	dstExt.PendingBalanceVersion++
	return storeConfidential(ctx, 2, dstRec, dst, dstExt)
}

// applyPendingBalance folds pending into available. The owner supplies the
// counter and version it decrypted against; a mismatch means the pending
// balance changed since then and the supplied decryptable balance would be
// wrong. The counter alone repeats after every apply.
func applyPendingBalance(ctx *InvokeContext, args *token.ApplyPendingBalanceData) error {
	ctx.Consume(params.ApplyPendingBalanceCost)
	rec, acc, ext, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, 1, acc.Owner); err != nil {
		return err
	}
	if args.ExpectedPendingBalanceCreditCounter != ext.PendingBalanceCreditCounter ||
		args.ExpectedPendingBalanceVersion != ext.PendingBalanceVersion {
		return token.ErrPendingBalanceCounterMismatch
	}
	pending, err := elgamal.CombineLoHi(ext.PendingBalanceLo, ext.PendingBalanceHi, params.PendingBalanceLoBits)
	if err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	if ext.AvailableBalance, err = ext.AvailableBalance.Add(pending); err != nil {
		return token.ErrCiphertextArithmeticFailed
	}
	ext.PendingBalanceLo = elgamal.ZeroCiphertext()
	ext.PendingBalanceHi = elgamal.ZeroCiphertext()
	ext.ExpectedPendingCreditCounter = args.ExpectedPendingBalanceCreditCounter
	ext.ActualPendingCreditCounter = ext.PendingBalanceCreditCounter
	ext.PendingBalanceCreditCounter = 0
	ext.PendingBalanceVersion++
	ext.DecryptableAvailableBalance = args.NewDecryptableAvailableBalance
	return storeConfidential(ctx, 0, rec, acc, ext)
}

func setCreditFlags(ctx *InvokeContext, mutate func(*token.ConfidentialAccount)) error {
	rec, acc, ext, err := loadConfidential(ctx, 0)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, 1, acc.Owner); err != nil {
		return err
	}
	mutate(ext)
	return storeConfidential(ctx, 0, rec, acc, ext)
}

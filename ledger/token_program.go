package ledger

import (
	"fmt"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

type tokenProgram struct{}

func (tokenProgram) ID() common.Address { return params.TokenProgramID }
func (tokenProgram) Name() string       { return "token" }

func (p tokenProgram) Execute(ctx *InvokeContext) error {
	tag, body, err := token.DecodeData(ctx.Ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrInvalidInstruction, err)
	}
	ctx.Logf("Instruction: %v", tag)
	switch tag {
	case token.TagInitializeMint:
		return initializeMint(ctx, body.(*token.InitializeMintData))
	case token.TagMintTo:
		return mintTo(ctx, body.(*token.MintToData))
	case token.TagTransferChecked:
		return transferChecked(ctx, body.(*token.TransferCheckedData))
	case token.TagReallocate:
		return reallocate(ctx, body.(*token.ReallocateData))
	case token.TagConfigureAccount:
		return configureAccount(ctx, body.(*token.ConfigureAccountData))
	case token.TagApproveAccount:
		return approveAccount(ctx)
	case token.TagDeposit:
		return deposit(ctx, body.(*token.DepositData))
	case token.TagWithdraw:
		return withdraw(ctx, body.(*token.WithdrawData))
	case token.TagTransfer:
		return confidentialTransfer(ctx, body.(*token.TransferData))
	case token.TagApplyPendingBalance:
		return applyPendingBalance(ctx, body.(*token.ApplyPendingBalanceData))
	case token.TagEnableConfidentialCredits:
		return setCreditFlags(ctx, func(ext *token.ConfidentialAccount) { ext.AllowConfidentialCredits = true })
	case token.TagDisableConfidentialCredits:
		return setCreditFlags(ctx, func(ext *token.ConfidentialAccount) { ext.AllowConfidentialCredits = false })
	case token.TagEnableNonConfidentialCredits:
		return setCreditFlags(ctx, func(ext *token.ConfidentialAccount) { ext.AllowNonConfidentialCredits = true })
	case token.TagDisableNonConfidentialCredits:
		return setCreditFlags(ctx, func(ext *token.ConfidentialAccount) { ext.AllowNonConfidentialCredits = false })
	}
	return token.ErrInvalidInstruction
}

// loadTokenAccount reads the i-th instruction account as a token account.
func loadTokenAccount(ctx *InvokeContext, i int) (*accountRecord, *token.Account, error) {
	rec, err := ctx.Load(i)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, token.ErrAccountNotFound
	}
	if rec.Owner != params.TokenProgramID {
		return nil, nil, token.ErrInvalidAccountData
	}
	acc, err := token.UnpackAccount(rec.Data)
	if err != nil {
		return nil, nil, err
	}
	return rec, acc, nil
}

func loadMint(ctx *InvokeContext, i int) (*accountRecord, *token.Mint, error) {
	rec, err := ctx.Load(i)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, token.ErrAccountNotFound
	}
	if rec.Owner != params.TokenProgramID {
		return nil, nil, token.ErrInvalidAccountData
	}
	if len(rec.Data) != params.MintLen &&
		(len(rec.Data) <= params.BaseAccountLen || token.AccountType(rec.Data[params.BaseAccountLen]) != token.AccountTypeMint) {
		return nil, nil, token.ErrInvalidAccountData
	}
	m, err := token.UnpackMint(rec.Data)
	if err != nil {
		return nil, nil, err
	}
	return rec, m, nil
}

// storeTokenAccount writes the base layout of acc back over rec.
func storeTokenAccount(ctx *InvokeContext, i int, rec *accountRecord, acc *token.Account) error {
	copy(rec.Data, acc.Pack())
	return ctx.Store(i, rec)
}

// requireOwner checks that the i-th account is owner and has signed.
func requireOwner(ctx *InvokeContext, i int, owner common.Address) error {
	if ctx.Ix.Account(i) != owner {
		return token.ErrOwnerMismatch
	}
	return ctx.RequireSigner(i)
}

func initializeMint(ctx *InvokeContext, args *token.InitializeMintData) error {
	ctx.Consume(params.CreateAccountCost)
	if err := ctx.RequireSigner(0); err != nil {
		return err
	}
	if err := ctx.RequireSigner(1); err != nil {
		return err
	}
	existing, err := ctx.Load(0)
	if err != nil {
		return err
	}
	if existing != nil {
		return token.ErrAccountAlreadyInUse
	}
	authority := args.MintAuthority
	m := &token.Mint{MintAuthority: &authority, Decimals: args.Decimals, IsInitialized: true}
	var ext *token.ConfidentialMint
	if args.Confidential {
		ext = &token.ConfidentialMint{Authority: args.ConfidentialAuthority, AutoApproveNewAccounts: args.AutoApprove}
	}
	data := token.PackMintWithExtension(m, ext)
	rent, err := debitRent(ctx, 1, uint64(len(data)))
	if err != nil {
		return err
	}
	return ctx.Store(0, &accountRecord{Owner: params.TokenProgramID, Lamports: rent, Data: data})
}

// creditPublic adds amount to the plain balance of the i-th account,
// honouring the confidential extension's non-confidential credit switch.
func creditPublic(ctx *InvokeContext, i int, rec *accountRecord, acc *token.Account, amount uint64) error {
	if ext, err := token.GetConfidentialAccount(rec.Data); err == nil && !ext.AllowNonConfidentialCredits {
		return token.ErrNonConfidentialCreditsDisabled
	}
	if acc.Amount+amount < acc.Amount {
		return token.ErrInvalidInstruction
	}
	acc.Amount += amount
	return storeTokenAccount(ctx, i, rec, acc)
}

func mintTo(ctx *InvokeContext, args *token.MintToData) error {
	mrec, m, err := loadMint(ctx, 0)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil {
		return token.ErrOwnerMismatch
	}
	if err := requireOwner(ctx, 2, *m.MintAuthority); err != nil {
		return err
	}
	rec, acc, err := loadTokenAccount(ctx, 1)
	if err != nil {
		return err
	}
	if acc.Mint != ctx.Ix.Account(0) {
		return token.ErrMintMismatch
	}
	if err := creditPublic(ctx, 1, rec, acc, args.Amount); err != nil {
		return err
	}
	m.Supply += args.Amount
	copy(mrec.Data, m.Pack())
	return ctx.Store(0, mrec)
}

func transferChecked(ctx *InvokeContext, args *token.TransferCheckedData) error {
	srcRec, src, err := loadTokenAccount(ctx, 0)
	if err != nil {
		return err
	}
	_, m, err := loadMint(ctx, 1)
	if err != nil {
		return err
	}
	if m.Decimals != args.Decimals {
		return token.ErrMintDecimalsMismatch
	}
	if src.Mint != ctx.Ix.Account(1) {
		return token.ErrMintMismatch
	}
	if err := requireOwner(ctx, 3, src.Owner); err != nil {
		return err
	}
	if src.Amount < args.Amount {
		return token.ErrInsufficientFunds
	}
	src.Amount -= args.Amount
	if err := storeTokenAccount(ctx, 0, srcRec, src); err != nil {
		return err
	}
	dstRec, dst, err := loadTokenAccount(ctx, 2)
	if err != nil {
		return err
	}
	if dst.Mint != src.Mint {
		return token.ErrMintMismatch
	}
	return creditPublic(ctx, 2, dstRec, dst, args.Amount)
}

// reallocate grows a token account so the requested extensions fit. The
// extension area is left zeroed; configuring writes the entries.
func reallocate(ctx *InvokeContext, args *token.ReallocateData) error {
	ctx.Consume(params.ReallocateCost)
	rec, acc, err := loadTokenAccount(ctx, 0)
	if err != nil {
		return err
	}
	if err := ctx.RequireSigner(1); err != nil {
		return err
	}
	if err := requireOwner(ctx, 2, acc.Owner); err != nil {
		return err
	}
	size := params.BaseAccountLen + params.AccountTypeLen
	for _, e := range args.Extensions {
		ext := token.ExtensionType(e)
		if ext != token.ExtensionConfidentialTransferAccount {
			return fmt.Errorf("%w: extension %d not valid for accounts", token.ErrInvalidInstruction, e)
		}
		size += params.ExtensionHeaderLen + ext.Len()
	}
	if len(rec.Data) >= size {
		return nil
	}
	rentDelta := params.RentExemptMinimum(uint64(size)) - params.RentExemptMinimum(uint64(len(rec.Data)))
	payer, err := ctx.Load(1)
	if err != nil {
		return err
	}
	if payer == nil || payer.Lamports < rentDelta {
		return token.ErrInsufficientLamports
	}
	payer.Lamports -= rentDelta
	if err := ctx.Store(1, payer); err != nil {
		return err
	}
	// Reload after the payer write in case payer and account coincide.
	rec, _, err = loadTokenAccount(ctx, 0)
	if err != nil {
		return err
	}
	grown := make([]byte, size)
	copy(grown, rec.Data)
	grown[params.BaseAccountLen] = byte(token.AccountTypeAccount)
	rec.Data = grown
	rec.Lamports += rentDelta
	ctx.Logf("Reallocate %v to %d bytes", ctx.Ix.Account(0), size)
	return ctx.Store(0, rec)
}

package ledger

import (
	"fmt"
	"unicode/utf8"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

// maxAccountSpace caps the data size a single create may allocate.
const maxAccountSpace = 10 * 1024 * 1024

type systemProgram struct{}

func (systemProgram) ID() common.Address { return params.SystemProgramID }
func (systemProgram) Name() string       { return "system" }

func (systemProgram) Execute(ctx *InvokeContext) error {
	tag, body, err := token.DecodeSystem(ctx.Ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrInvalidInstruction, err)
	}
	if err := ctx.RequireSigner(0); err != nil {
		return err
	}
	from, err := ctx.Load(0)
	if err != nil {
		return err
	}
	if from == nil {
		return token.ErrAccountNotFound
	}
	switch tag {
	case token.SystemCreateAccount:
		args := body.(*token.SystemCreateAccountData)
		ctx.Consume(params.CreateAccountCost)
		if err := ctx.RequireSigner(1); err != nil {
			return err
		}
		existing, err := ctx.Load(1)
		if err != nil {
			return err
		}
		if existing != nil {
			return token.ErrAccountAlreadyInUse
		}
		if args.Space > maxAccountSpace {
			return token.ErrInvalidAccountSize
		}
		if from.Lamports < args.Lamports {
			return token.ErrInsufficientLamports
		}
		from.Lamports -= args.Lamports
		if err := ctx.Store(0, from); err != nil {
			return err
		}
		return ctx.Store(1, &accountRecord{Owner: args.Owner, Lamports: args.Lamports, Data: make([]byte, args.Space)})

	case token.SystemTransfer:
		args := body.(*token.SystemTransferData)
		if from.Owner != params.SystemProgramID {
			return token.ErrInvalidAccountData
		}
		if from.Lamports < args.Lamports {
			return token.ErrInsufficientLamports
		}
		from.Lamports -= args.Lamports
		if err := ctx.Store(0, from); err != nil {
			return err
		}
		to, err := ctx.Load(1)
		if err != nil {
			return err
		}
		if to == nil {
			to = &accountRecord{Owner: params.SystemProgramID}
		}
		to.Lamports += args.Lamports
		return ctx.Store(1, to)
	}
	return token.ErrInvalidInstruction
}

// debitRent moves the rent-exempt minimum for size bytes out of the payer
// at account index i.
func debitRent(ctx *InvokeContext, i int, size uint64) (uint64, error) {
	payer, err := ctx.Load(i)
	if err != nil {
		return 0, err
	}
	rent := params.RentExemptMinimum(size)
	if payer == nil || payer.Lamports < rent {
		return 0, token.ErrInsufficientLamports
	}
	payer.Lamports -= rent
	return rent, ctx.Store(i, payer)
}

type associatedProgram struct{}

func (associatedProgram) ID() common.Address { return params.AssociatedTokenProgram }
func (associatedProgram) Name() string       { return "associated-token" }

// Execute creates the associated token account with room for the base
// layout only. Extensions are added later by Reallocate.
func (associatedProgram) Execute(ctx *InvokeContext) error {
	if len(ctx.Ix.Data) != 1 || len(ctx.Ix.Accounts) < 4 {
		return token.ErrInvalidInstruction
	}
	idempotent := ctx.Ix.Data[0] == token.AssociatedCreateIdempotent
	if !idempotent && ctx.Ix.Data[0] != token.AssociatedCreate {
		return token.ErrInvalidInstruction
	}
	ctx.Consume(params.CreateAccountCost)
	if err := ctx.RequireSigner(0); err != nil {
		return err
	}
	ata, owner, mint := ctx.Ix.Account(1), ctx.Ix.Account(2), ctx.Ix.Account(3)
	if ata != token.DeriveAccountAddress(owner, mint) {
		return fmt.Errorf("%w: address does not derive from owner and mint", token.ErrInvalidAccountData)
	}
	if _, _, err := loadMint(ctx, 3); err != nil {
		return err
	}
	existing, err := ctx.Load(1)
	if err != nil {
		return err
	}
	if existing != nil {
		if !idempotent {
			return token.ErrAccountAlreadyInUse
		}
		acc, err := token.UnpackAccount(existing.Data)
		if err != nil || acc.Owner != owner || acc.Mint != mint {
			return token.ErrAccountAlreadyInUse
		}
		return nil
	}
	rent, err := debitRent(ctx, 0, params.BaseAccountLen)
	if err != nil {
		return err
	}
	acc := &token.Account{Mint: mint, Owner: owner, State: token.StateInitialized}
	ctx.Logf("Create associated account %v for %v", ata, owner)
	return ctx.Store(1, &accountRecord{Owner: params.TokenProgramID, Lamports: rent, Data: acc.Pack()})
}

type proofProgram struct{}

func (proofProgram) ID() common.Address { return params.ProofProgramID }
func (proofProgram) Name() string       { return "zk-proof" }

var proofCosts = map[zkproof.ProofType]uint64{
	zkproof.ProofTypePubkeyValidity:               params.VerifyPubkeyValidityCost,
	zkproof.ProofTypeCiphertextValidity:           params.VerifyCiphertextValidity,
	zkproof.ProofTypeCiphertextCommitmentEquality: params.VerifyEqualityCost,
}

func (proofProgram) Execute(ctx *InvokeContext) error {
	proof, err := token.DecodeVerifyProof(ctx.Ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrInvalidInstruction, err)
	}
	ctx.Consume(zkproof.VerifyCost(proof, proofCosts, params.VerifyRangeCostPerBit))
	if err := proof.Verify(); err != nil {
		ctx.Logf("Verify %v failed: %v", proof.Type(), err)
		return token.ErrProofVerificationFailed
	}
	return nil
}

type computeBudgetProgram struct{}

func (computeBudgetProgram) ID() common.Address { return params.ComputeBudgetProgramID }
func (computeBudgetProgram) Name() string       { return "compute-budget" }

// Execute only validates; limits are read before execution starts.
func (computeBudgetProgram) Execute(ctx *InvokeContext) error {
	if _, _, err := token.DecodeComputeBudget(ctx.Ix.Data); err != nil {
		return fmt.Errorf("%w: %v", token.ErrInvalidInstruction, err)
	}
	return nil
}

type memoProgram struct{}

func (memoProgram) ID() common.Address { return params.MemoProgramID }
func (memoProgram) Name() string       { return "memo" }

func (memoProgram) Execute(ctx *InvokeContext) error {
	for i := range ctx.Ix.Accounts {
		if err := ctx.RequireSigner(i); err != nil {
			return err
		}
	}
	if !utf8.Valid(ctx.Ix.Data) {
		return fmt.Errorf("%w: memo is not valid UTF-8", token.ErrInvalidInstruction)
	}
	ctx.Consume(params.MemoCostPerByte * uint64(len(ctx.Ix.Data)))
	ctx.Logf("Memo (len %d): %q", len(ctx.Ix.Data), ctx.Ix.Data)
	return nil
}

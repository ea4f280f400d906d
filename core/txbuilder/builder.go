// Package txbuilder assembles ordered operations into a single bundle.
//
// Instructions that consume proofs are placed first and their proofs follow
// directly behind them. The relative offsets the consumer records are only
// computed here, once every position is known.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

var (
	// ErrBundleTooLarge indicates the serialized bundle or its instruction
	// count exceeds the ledger limit. Split unrelated operations.
	ErrBundleTooLarge = types.ErrBundleTooLarge

	// ErrNotConfigurable indicates a configure instruction ordered before the
	// creation or reallocation of its account.
	ErrNotConfigurable = errors.New("txbuilder: account not configurable at this position")

	// ErrEmpty indicates Build was called without any operation.
	ErrEmpty = errors.New("txbuilder: no operations")

	// ErrProofCount indicates a consumer was given the wrong number of proofs.
	ErrProofCount = errors.New("txbuilder: proof count mismatch")

	// ErrOffsetRange indicates a proof landed too far from its consumer.
	ErrOffsetRange = errors.New("txbuilder: proof offset out of range")
)

// ProofConsumer is an instruction that reads sibling proof instructions.
// Encode receives one relative offset per proof, in the order the proofs
// were attached.
type ProofConsumer interface {
	Name() string
	ProofCount() int
	Encode(offsets []int8) (types.Instruction, error)
}

// ProofLocator records where a proof ended up in the bundle.
type ProofLocator struct {
	Consumer string
	Position int
	Payload  zkproof.ProofData
}

type op struct {
	ix       types.Instruction
	consumer ProofConsumer
	proofs   []zkproof.ProofData
}

// Builder accumulates operations. It is not safe for concurrent use.
type Builder struct {
	ops []op

	unitLimit   uint32
	unitPrice   uint64
	memo        string
	memoSigners []common.Address

	maxSize         int
	maxInstructions int

	locators []ProofLocator
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxBundleSize overrides params.MaxBundleSize.
func WithMaxBundleSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithMaxInstructions overrides params.MaxInstructionsPerBundle.
func WithMaxInstructions(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxInstructions = n
		}
	}
}

// WithComputeUnitLimit prepends a compute unit limit instruction.
func WithComputeUnitLimit(units uint32) Option {
	return func(b *Builder) { b.unitLimit = units }
}

// WithComputeUnitPrice prepends a compute unit price instruction.
func WithComputeUnitPrice(microUnits uint64) Option {
	return func(b *Builder) { b.unitPrice = microUnits }
}

// WithMemo appends a memo instruction.
func WithMemo(text string, signers ...common.Address) Option {
	return func(b *Builder) {
		b.memo = text
		b.memoSigners = signers
	}
}

func New(opts ...Option) *Builder {
	b := &Builder{
		maxSize:         params.MaxBundleSize,
		maxInstructions: params.MaxInstructionsPerBundle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends a plain instruction.
func (b *Builder) Add(ix types.Instruction) *Builder {
	b.ops = append(b.ops, op{ix: ix})
	return b
}

// AddWithProofs appends a proof consumer followed by one verification
// instruction per proof.
func (b *Builder) AddWithProofs(c ProofConsumer, proofs ...zkproof.ProofData) *Builder {
	b.ops = append(b.ops, op{consumer: c, proofs: proofs})
	return b
}

// Len returns the number of queued operations, not counting proofs or
// budget instructions.
func (b *Builder) Len() int { return len(b.ops) }

// Locators returns the proof positions resolved by the last Build.
func (b *Builder) Locators() []ProofLocator {
	return append([]ProofLocator(nil), b.locators...)
}

// Instructions resolves every operation into its final instruction list.
func (b *Builder) Instructions() ([]types.Instruction, error) {
	if len(b.ops) == 0 {
		return nil, ErrEmpty
	}
	var out []types.Instruction
	if b.unitLimit != 0 {
		out = append(out, token.SetComputeUnitLimit(b.unitLimit))
	}
	if b.unitPrice != 0 {
		out = append(out, token.SetComputeUnitPrice(b.unitPrice))
	}
	b.locators = b.locators[:0]
	for _, o := range b.ops {
		if o.consumer == nil {
			out = append(out, o.ix.Copy())
			continue
		}
		if len(o.proofs) != o.consumer.ProofCount() {
			return nil, fmt.Errorf("%w: %s wants %d, have %d", ErrProofCount, o.consumer.Name(), o.consumer.ProofCount(), len(o.proofs))
		}
		at := len(out)
		offsets := make([]int8, len(o.proofs))
		for i, p := range o.proofs {
			rel := i + 1
			if rel > params.MaxProofInstructionOffset {
				return nil, fmt.Errorf("%w: %s proof %d at +%d", ErrOffsetRange, o.consumer.Name(), i, rel)
			}
			offsets[i] = int8(rel)
			b.locators = append(b.locators, ProofLocator{Consumer: o.consumer.Name(), Position: at + rel, Payload: p})
		}
		ix, err := o.consumer.Encode(offsets)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
		for _, p := range o.proofs {
			out = append(out, token.VerifyProof(p))
		}
	}
	if b.memo != "" {
		out = append(out, token.Memo(b.memo, b.memoSigners...))
	}
	if err := CheckOrdering(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Build resolves the operations into an unsigned bundle paying fees from
// payer and pinned to checkpoint.
func (b *Builder) Build(payer common.Address, checkpoint common.Hash) (*types.Bundle, error) {
	ixs, err := b.Instructions()
	if err != nil {
		return nil, err
	}
	if len(ixs) > b.maxInstructions {
		return nil, fmt.Errorf("%w: %d instructions, limit %d", ErrBundleTooLarge, len(ixs), b.maxInstructions)
	}
	bundle := &types.Bundle{FeePayer: payer, Checkpoint: checkpoint, Instructions: ixs}
	size, err := bundle.Size()
	if err != nil {
		return nil, err
	}
	if size > b.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrBundleTooLarge, size, b.maxSize)
	}
	return bundle, nil
}

// CheckOrdering rejects bundles that configure an account before the same
// bundle creates or reallocates it. Accounts that the bundle neither creates
// nor reallocates are left to the ledger.
func CheckOrdering(ixs []types.Instruction) error {
	created := make(map[common.Address]int)
	reallocated := make(map[common.Address]int)
	configured := make(map[common.Address]int)
	for i := range ixs {
		ix := &ixs[i]
		switch ix.Program {
		case params.AssociatedTokenProgram:
			if _, ok := created[ix.Account(1)]; !ok {
				created[ix.Account(1)] = i
			}
		case params.TokenProgramID:
			if len(ix.Data) == 0 {
				continue
			}
			switch token.Tag(ix.Data[0]) {
			case token.TagReallocate:
				if _, ok := reallocated[ix.Account(0)]; !ok {
					reallocated[ix.Account(0)] = i
				}
			case token.TagConfigureAccount:
				if _, ok := configured[ix.Account(0)]; !ok {
					configured[ix.Account(0)] = i
				}
			}
		}
	}
	for acct, at := range configured {
		c, hasCreate := created[acct]
		r, hasRealloc := reallocated[acct]
		switch {
		case hasCreate && c > at:
			return fmt.Errorf("%w: %v configured at %d, created at %d", ErrNotConfigurable, acct, at, c)
		case hasRealloc && r > at:
			return fmt.Errorf("%w: %v configured at %d, reallocated at %d", ErrNotConfigurable, acct, at, r)
		case hasCreate && !hasRealloc:
			return fmt.Errorf("%w: %v created without extension space", ErrNotConfigurable, acct)
		}
	}
	return nil
}

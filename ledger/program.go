package ledger

import (
	"fmt"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/token"
)

// InvokeContext carries what a program may see and touch while executing
// one instruction of a bundle.
type InvokeContext struct {
	Index  int
	Ix     *types.Instruction
	Bundle *types.Bundle

	state *overlay
	units uint64
	logs  []string
}

// Address returns the i-th account of the instruction.
func (c *InvokeContext) Address(i int) (common.Address, error) {
	if i < 0 || i >= len(c.Ix.Accounts) {
		return common.Address{}, token.ErrInvalidInstruction
	}
	return c.Ix.Accounts[i].Address, nil
}

// Load returns a copy of the i-th account, or nil if it does not exist.
func (c *InvokeContext) Load(i int) (*accountRecord, error) {
	addr, err := c.Address(i)
	if err != nil {
		return nil, err
	}
	return c.state.account(addr)
}

// Store writes the i-th account. The account must be marked writable.
func (c *InvokeContext) Store(i int, rec *accountRecord) error {
	addr, err := c.Address(i)
	if err != nil {
		return err
	}
	if !c.Ix.Accounts[i].Writable {
		return fmt.Errorf("%w: account %d is read-only", token.ErrInvalidInstruction, i)
	}
	c.state.set(addr, rec)
	return nil
}

// RequireSigner fails unless the i-th account signed the bundle.
func (c *InvokeContext) RequireSigner(i int) error {
	if i < 0 || i >= len(c.Ix.Accounts) {
		return token.ErrInvalidInstruction
	}
	if !c.Ix.Accounts[i].Signer {
		return token.ErrMissingSigner
	}
	return nil
}

// Sibling returns the instruction at a relative offset from this one.
func (c *InvokeContext) Sibling(offset int8) (*types.Instruction, bool) {
	at := c.Index + int(offset)
	if offset == 0 || at < 0 || at >= len(c.Bundle.Instructions) {
		return nil, false
	}
	return &c.Bundle.Instructions[at], true
}

// Consume charges compute units.
func (c *InvokeContext) Consume(units uint64) { c.units += units }

func (c *InvokeContext) Logf(format string, args ...interface{}) {
	c.logs = append(c.logs, fmt.Sprintf(format, args...))
}

// Program is implemented by every built-in program of the ledger.
type Program interface {
	ID() common.Address
	Name() string
	Execute(ctx *InvokeContext) error
}

// Registry maps program addresses to their implementation.
type Registry struct{ programs map[common.Address]Program }

func NewRegistry() *Registry {
	return &Registry{programs: make(map[common.Address]Program)}
}

// Register adds a program, replacing any earlier one with the same ID.
func (r *Registry) Register(p Program) { r.programs[p.ID()] = p }

func (r *Registry) Lookup(id common.Address) (Program, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// DefaultRegistry returns a registry with all built-in programs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(systemProgram{})
	r.Register(associatedProgram{})
	r.Register(tokenProgram{})
	r.Register(proofProgram{})
	r.Register(computeBudgetProgram{})
	r.Register(memoProgram{})
	return r
}

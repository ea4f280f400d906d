package types

import (
	"github.com/tos-network/ctoken/common"
)

// AccountMeta names an account an instruction touches.
type AccountMeta struct {
	Address  common.Address
	Signer   bool
	Writable bool
}

// Instruction is one program invocation inside a bundle.
type Instruction struct {
	Program  common.Address
	Accounts []AccountMeta
	Data     []byte
}

func Writable(addr common.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, Signer: signer, Writable: true}
}

func ReadOnly(addr common.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, Signer: signer}
}

// Account returns the i-th account address or the zero address if absent.
func (ix *Instruction) Account(i int) common.Address {
	if i < 0 || i >= len(ix.Accounts) {
		return common.Address{}
	}
	return ix.Accounts[i].Address
}

// Copy returns a deep copy of ix.
func (ix *Instruction) Copy() Instruction {
	out := Instruction{
		Program:  ix.Program,
		Accounts: append([]AccountMeta(nil), ix.Accounts...),
		Data:     common.CopyBytes(ix.Data),
	}
	return out
}

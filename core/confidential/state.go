package confidential

import (
	"errors"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

// State is the lifecycle position of a confidential token account.
type State uint8

const (
	Uninitialized State = iota
	Created             // base fields only
	Reallocated         // room for the extension, not configured
	Configured
	Active // at least one credit has landed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case Reallocated:
		return "reallocated"
	case Configured:
		return "configured"
	case Active:
		return "active"
	}
	return "unknown"
}

// Account is a caller-side handle on a token account. State reflects the
// last transition this process observed or performed.
type Account struct {
	Address common.Address
	Owner   common.Address
	Mint    common.Address
	State   State
}

// Snapshot is a decoded view of an account as read from the ledger.
type Snapshot struct {
	Address  common.Address
	Lamports uint64
	Slot     uint64
	State    State

	Token        *token.Account
	Confidential *token.ConfidentialAccount // nil until configured
}

func decodeSnapshot(info *types.AccountInfo) (*Snapshot, error) {
	if info == nil {
		return &Snapshot{State: Uninitialized}, nil
	}
	snap := &Snapshot{Address: info.Address, Lamports: info.Lamports, Slot: info.Slot}
	acc, err := token.UnpackAccount(info.Data)
	if err != nil {
		return nil, err
	}
	snap.Token = acc
	if len(info.Data) < params.ConfidentialAccountLen {
		snap.State = Created
		return snap, nil
	}
	ext, err := token.GetConfidentialAccount(info.Data)
	if errors.Is(err, token.ErrExtensionNotFound) {
		snap.State = Reallocated
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Confidential = ext
	snap.State = Configured
	if credited(ext) {
		snap.State = Active
	}
	return snap, nil
}

func credited(ext *token.ConfidentialAccount) bool {
	zero := elgamal.ZeroCiphertext()
	return ext.PendingBalanceCreditCounter > 0 || ext.ActualPendingCreditCounter > 0 ||
		ext.AvailableBalance != zero || ext.PendingBalanceLo != zero || ext.PendingBalanceHi != zero
}

package types

import (
	"errors"
	"fmt"

	"github.com/tos-network/ctoken/common"
)

var (
	// ErrAccountNotFound is returned by account queries for unknown addresses.
	ErrAccountNotFound = errors.New("types: account not found")

	// ErrBundleNotFound is returned when a bundle has no receipt (yet).
	ErrBundleNotFound = errors.New("types: bundle not found")

	// ErrAlreadyProcessed is returned when a bundle with the same ID already
	// has a receipt.
	ErrAlreadyProcessed = errors.New("types: bundle already processed")
)

// InstructionError is a program failure at a specific instruction. Code is
// program-defined.
type InstructionError struct {
	Index   uint8  `json:"index"`
	Program string `json:"program"`
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

func (e *InstructionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("instruction %d (%s) failed: %s (code %d)", e.Index, e.Program, e.Message, e.Code)
	}
	return fmt.Sprintf("instruction %d (%s) failed with code %d", e.Index, e.Program, e.Code)
}

// Receipt records how a submitted bundle landed.
type Receipt struct {
	ID           common.Signature  `json:"id"`
	Slot         uint64            `json:"slot"`
	Checkpoint   common.Hash       `json:"checkpoint"`
	ComputeUnits uint64            `json:"computeUnits"`
	Fee          uint64            `json:"fee"`
	Err          *InstructionError `json:"err,omitempty"`
	Logs         []string          `json:"logs,omitempty"`
}

// Succeeded reports whether every instruction committed.
func (r *Receipt) Succeeded() bool { return r != nil && r.Err == nil }

// ResourceEstimate is the result of dry-running a bundle.
type ResourceEstimate struct {
	ComputeUnits uint64            `json:"computeUnits"`
	Fee          uint64            `json:"fee"`
	Err          *InstructionError `json:"err,omitempty"`
	Logs         []string          `json:"logs,omitempty"`
}

// AccountInfo is a raw ledger account.
type AccountInfo struct {
	Address  common.Address `json:"address"`
	Owner    common.Address `json:"owner"`
	Lamports uint64         `json:"lamports"`
	Data     []byte         `json:"data"`

	// Slot is the ledger slot the account was read at.
	Slot uint64 `json:"slot"`
}

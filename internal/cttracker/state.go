// Package cttracker persists the last observed confidential state of an
// account so a later run can notice when the ledger moved backwards.
package cttracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tos-network/ctoken/core/confidential"
)

type State struct {
	Account        string `json:"account"`
	Mint           string `json:"mint"`
	Lifecycle      string `json:"lifecycle"`
	Public         uint64 `json:"public"`
	Pending        uint64 `json:"pending"`
	Available      uint64 `json:"available"`
	PendingCredits uint64 `json:"pendingCredits"`
	Slot           uint64 `json:"slot"`
	UpdatedAt      string `json:"updatedAt"`
}

// Observe builds a tracker entry from a decrypted view of acct read at slot.
func Observe(acct *confidential.Account, b *confidential.Balances, slot uint64) State {
	return State{
		Account:        acct.Address.String(),
		Mint:           acct.Mint.String(),
		Lifecycle:      acct.State.String(),
		Public:         b.Public,
		Pending:        b.Pending,
		Available:      b.Available,
		PendingCredits: b.PendingCredits,
		Slot:           slot,
	}
}

func Load(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tracker state: %w", err)
	}
	return &out, nil
}

func lifecycleRank(name string) int {
	for s := confidential.Uninitialized; s <= confidential.Active; s++ {
		if s.String() == name {
			return int(s)
		}
	}
	return -1
}

// Validate compares a fresh observation with the stored one. A ledger that
// was reset or restored from an older snapshot shows up as a slot or a
// lifecycle moving backwards.
func Validate(prev *State, curr State, allowRollback bool) error {
	if prev == nil {
		return nil
	}
	if prev.Account != "" && prev.Account != curr.Account {
		return fmt.Errorf("tracker account mismatch: file=%s ledger=%s", prev.Account, curr.Account)
	}
	if curr.Slot < prev.Slot {
		if allowRollback {
			return nil
		}
		return fmt.Errorf("ledger rollback detected: slot moved backward %d -> %d (use --track-accept-rollback to accept)", prev.Slot, curr.Slot)
	}
	if lifecycleRank(curr.Lifecycle) < lifecycleRank(prev.Lifecycle) {
		if allowRollback {
			return nil
		}
		return fmt.Errorf("account lifecycle moved backward %s -> %s (use --track-accept-rollback to accept)", prev.Lifecycle, curr.Lifecycle)
	}
	return nil
}

func Save(path string, curr State) error {
	curr.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.MarshalIndent(curr, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

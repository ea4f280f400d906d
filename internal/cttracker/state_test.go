package cttracker

import (
	"path/filepath"
	"testing"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/confidential"
)

func TestValidate(t *testing.T) {
	prev := &State{Account: "acct", Lifecycle: "active", Slot: 100}

	if err := Validate(prev, State{Account: "acct", Lifecycle: "active", Slot: 101}, false); err != nil {
		t.Fatalf("expected forward transition to pass, got %v", err)
	}
	if err := Validate(prev, State{Account: "other", Lifecycle: "active", Slot: 101}, false); err == nil {
		t.Fatal("expected account mismatch error")
	}
	if err := Validate(prev, State{Account: "acct", Lifecycle: "active", Slot: 99}, false); err == nil {
		t.Fatal("expected slot rollback error")
	}
	if err := Validate(prev, State{Account: "acct", Lifecycle: "configured", Slot: 120}, false); err == nil {
		t.Fatal("expected lifecycle rollback error")
	}
	if err := Validate(prev, State{Account: "acct", Lifecycle: "configured", Slot: 99}, true); err != nil {
		t.Fatalf("expected rollback allowed, got %v", err)
	}
	if err := Validate(nil, State{Account: "acct"}, false); err != nil {
		t.Fatalf("expected first observation to pass, got %v", err)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ct", "tracker.json")

	if got, err := Load(path); err != nil || got != nil {
		t.Fatalf("load empty expected (nil,nil), got (%v,%v)", got, err)
	}
	acct := &confidential.Account{Address: common.Address{1}, Mint: common.Address{2}, State: confidential.Active}
	curr := Observe(acct, &confidential.Balances{Public: 5, Pending: 7, Available: 42, PendingCredits: 2}, 88)
	if err := Save(path, curr); err != nil {
		t.Fatalf("save tracker state: %v", err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("load tracker state: %v", err)
	}
	if st == nil {
		t.Fatal("expected non-nil state")
	}
	if st.Account != curr.Account || st.Available != 42 || st.Pending != 7 || st.Slot != 88 || st.Lifecycle != "active" {
		t.Fatalf("state mismatch got=%+v want=%+v", *st, curr)
	}
	if st.UpdatedAt == "" {
		t.Fatal("expected updatedAt to be populated")
	}
}

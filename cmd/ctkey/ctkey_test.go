package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/internal/cttracker"
	"github.com/tos-network/ctoken/internal/ledgerapi"
	"github.com/tos-network/ctoken/ledger"
)

type testLedger struct {
	t        *testing.T
	endpoint string
	dir      string
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	l, err := ledger.Open(ledger.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	api, err := ledgerapi.New(l, ledgerapi.Config{Faucet: true})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testLedger{t: t, endpoint: srv.URL, dir: t.TempDir()}
}

// run executes ctkey with args and returns its standard output.
func (tl *testLedger) run(args ...string) (string, error) {
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"ctkey", "--verbosity", "0"}, args...))
	return out.String(), err
}

func (tl *testLedger) mustRun(args ...string) string {
	tl.t.Helper()
	out, err := tl.run(args...)
	if err != nil {
		tl.t.Fatalf("ctkey %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (tl *testLedger) keyfile(name string) (string, string) {
	tl.t.Helper()
	path := filepath.Join(tl.dir, name+".json")
	tl.mustRun("generate", path)
	w, err := wallet.Load(path)
	if err != nil {
		tl.t.Fatal(err)
	}
	return path, w.PublicKey().String()
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	tl := newTestLedger(t)
	path, _ := tl.keyfile("owner")
	if _, err := tl.run("generate", path); err == nil {
		t.Fatalf("expected error when keyfile exists")
	}
	if _, err := tl.run("generate", "--mnemonic-generate", "--base58", "x", filepath.Join(tl.dir, "other.json")); err == nil {
		t.Fatalf("expected error for exclusive flags")
	}
}

func TestLifecycle(t *testing.T) {
	tl := newTestLedger(t)
	ep := "--endpoint=" + tl.endpoint

	alice, _ := tl.keyfile("alice")
	bob, bobAddr := tl.keyfile("bob")
	tl.mustRun("airdrop", ep, "--keyfile", alice, "10000000000")
	tl.mustRun("airdrop", ep, "--keyfile", bob, "10000000000")

	var created map[string]string
	if err := json.Unmarshal([]byte(tl.mustRun("create-mint", ep, "--keyfile", alice, "--json")), &created); err != nil {
		t.Fatal(err)
	}
	mint := "--mint=" + created["mint"]

	out := tl.mustRun("create", ep, "--keyfile", alice, mint)
	if !strings.Contains(out, "is configured") {
		t.Fatalf("unexpected create output: %s", out)
	}
	tl.mustRun("create", ep, "--keyfile", bob, mint, "--no-configure")
	tl.mustRun("configure", ep, "--keyfile", bob, mint)

	tl.mustRun("mint-to", ep, "--keyfile", alice, mint, "1000")
	tl.mustRun("deposit", ep, "--keyfile", alice, mint, "600")
	out = tl.mustRun("apply", ep, "--keyfile", alice, mint)
	if !strings.Contains(out, "now 600") {
		t.Fatalf("unexpected apply output: %s", out)
	}
	tl.mustRun("transfer", ep, "--keyfile", alice, mint, "--to", bobAddr, "250")
	tl.mustRun("withdraw", ep, "--keyfile", alice, mint, "50")

	track := filepath.Join(tl.dir, "alice.track")
	var obs cttracker.State
	if err := json.Unmarshal([]byte(tl.mustRun("balance", ep, "--keyfile", alice, mint, "--json", "--track", track)), &obs); err != nil {
		t.Fatal(err)
	}
	if obs.Public != 450 || obs.Available != 300 || obs.Pending != 0 {
		t.Fatalf("unexpected alice balances %+v", obs)
	}
	saved, err := cttracker.Load(track)
	if err != nil || saved == nil || saved.Slot != obs.Slot {
		t.Fatalf("tracker not saved: %+v %v", saved, err)
	}

	out = tl.mustRun("balance", ep, "--keyfile", bob, mint)
	if !strings.Contains(out, "250") {
		t.Fatalf("bob's pending transfer missing: %s", out)
	}

	// Credits can be refused.
	tl.mustRun("credits", ep, "--keyfile", bob, mint, "disable")
	if _, err := tl.run("transfer", ep, "--keyfile", alice, mint, "--to", bobAddr, "10"); err == nil {
		t.Fatalf("transfer to account refusing credits succeeded")
	}
}

func TestAmountValidation(t *testing.T) {
	tl := newTestLedger(t)
	alice, _ := tl.keyfile("alice")
	if _, err := tl.run("deposit", "--keyfile", alice, "--mint", "11111111111111111111111111111111", "lots"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
	if _, err := tl.run("deposit", "--keyfile", alice, "--mint", "11111111111111111111111111111111"); err == nil {
		t.Fatalf("expected error for missing amount")
	}
}

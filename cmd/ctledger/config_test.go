package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/internal/ledgerapi"
	"github.com/tos-network/ctoken/ledger"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

func TestLoadConfig(t *testing.T) {
	mint := common.Address{0x11}
	authority := common.Address{0x22}
	file := filepath.Join(t.TempDir(), "ctledger.toml")
	content := `
[Ledger]
CheckpointWindow = 10

[API]
Faucet = true
RequestsPerSecond = 5.0

[HTTP]
Addr = "127.0.0.1:9000"

[[Mints]]
Mint = "` + mint.String() + `"
Authority = "` + authority.String() + `"
Decimals = 6
Confidential = true
AutoApprove = true
`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig()
	if err := loadConfig(file, &cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Ledger.CheckpointWindow != 10 {
		t.Fatalf("checkpoint window: have %d want 10", cfg.Ledger.CheckpointWindow)
	}
	if cfg.Ledger.MaxBundleSize != params.MaxBundleSize {
		t.Fatalf("unset field lost its default: %d", cfg.Ledger.MaxBundleSize)
	}
	if !cfg.API.Faucet || cfg.API.RequestsPerSecond != 5 || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected api config %+v %+v", cfg.API, cfg.HTTP)
	}
	if len(cfg.Mints) != 1 || cfg.Mints[0].Mint != mint || cfg.Mints[0].Decimals != 6 {
		t.Fatalf("unexpected mints %+v", cfg.Mints)
	}
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(file, []byte("[Ledger]\nBogus = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "Bogus") {
		t.Fatalf("error does not name the field: %v", err)
	}
}

func TestCreateMintsIdempotent(t *testing.T) {
	l, err := ledger.Open(ledger.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mints := []ledgerapi.CreateMintRequest{{Mint: common.Address{0x33}, Authority: common.Address{0x44}, Decimals: 2, Confidential: true}}
	ctx := context.Background()
	if err := createMints(ctx, l, mints); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := createMints(ctx, l, mints); err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	info, err := l.GetAccount(ctx, mints[0].Mint)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := token.UnpackMint(info.Data); err != nil {
		t.Fatalf("mint does not unpack: %v", err)
	}
}

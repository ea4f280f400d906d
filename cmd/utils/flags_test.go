package utils

import (
	"flag"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/urfave/cli/v2"
)

func TestParseAddress(t *testing.T) {
	want := common.Address{0x01, 0x02, 0x03}
	got, err := ParseAddress("mint", " "+want.String()+"\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got != want {
		t.Fatalf("have %v want %v", got, want)
	}
	if _, err := ParseAddress("mint", ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := ParseAddress("mint", "0OIl"); err == nil {
		t.Fatalf("expected error for non-base58 address")
	}
}

func TestLoadWallet(t *testing.T) {
	w, err := wallet.New()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "owner.json")
	if err := wallet.Save(path, w); err != nil {
		t.Fatal(err)
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(KeyFileFlag.Name, "", "")
	if err := set.Parse([]string{"--" + KeyFileFlag.Name, path}); err != nil {
		t.Fatal(err)
	}
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	loaded, err := LoadWallet(ctx, KeyFileFlag)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.PublicKey() != w.PublicKey() {
		t.Fatalf("address mismatch: have %v want %v", loaded.PublicKey(), w.PublicKey())
	}
	if _, err := LoadWallet(ctx, FeePayerFlag); err == nil {
		t.Fatalf("expected error for unset flag")
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{" , ,", nil},
		{"a", []string{"a"}},
		{" https://a.example ,https://b.example,, ", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		if got := SplitAndTrim(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitAndTrim(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

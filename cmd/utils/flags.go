// Package utils contains internal helper functions for the ctoken commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/urfave/cli/v2"
)

// These are the command line flags shared by more than one command. The
// flags are defined here so their names and help texts are the same for
// all commands.
var (
	// Ledger settings
	DataDirFlag = &cli.PathFlag{
		Name:     "datadir",
		Usage:    "Data directory for the ledger account store (empty keeps state in memory)",
		Category: flags.LedgerCategory,
	}
	ConfigFileFlag = &cli.PathFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.LedgerCategory,
	}

	// API settings
	HTTPListenFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP API listening address",
		Value:    "127.0.0.1:8899",
		Category: flags.APICategory,
	}
	EndpointFlag = &cli.StringFlag{
		Name:     "endpoint",
		Usage:    "Ledger HTTP API endpoint",
		Value:    "http://127.0.0.1:8899",
		EnvVars:  []string{"CTOKEN_ENDPOINT"},
		Category: flags.APICategory,
	}

	// Account settings
	KeyFileFlag = &cli.PathFlag{
		Name:     "keyfile",
		Usage:    "Keyfile of the account owner",
		Category: flags.AccountCategory,
	}
	FeePayerFlag = &cli.PathFlag{
		Name:     "feepayer",
		Usage:    "Keyfile of the fee payer (defaults to --keyfile)",
		Category: flags.AccountCategory,
	}
	MintFlag = &cli.StringFlag{
		Name:     "mint",
		Usage:    "Base58 address of the token mint",
		Category: flags.AccountCategory,
	}
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// LoadWallet reads the keyfile named by the given flag.
func LoadWallet(ctx *cli.Context, flag *cli.PathFlag) (*wallet.Wallet, error) {
	path := ctx.Path(flag.Name)
	if path == "" {
		return nil, fmt.Errorf("missing --%s", flag.Name)
	}
	w, err := wallet.Load(flags.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return w, nil
}

// ParseAddress parses a base58 address given on the command line.
func ParseAddress(name, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("missing %s", name)
	}
	addr, err := common.Base58ToAddress(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return addr, nil
}

// SplitAndTrim splits input separated by a comma and trims excessive white
// space from the substrings.
func SplitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

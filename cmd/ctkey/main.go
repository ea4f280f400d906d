// ctkey manages confidential token accounts on a ctledger.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tos-network/ctoken/internal/flags"
	"github.com/tos-network/ctoken/internal/logging"
	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a confidential token account manager")
	app.Flags = logging.Flags
	var closeLog func()
	app.Before = func(ctx *cli.Context) (err error) {
		closeLog, err = logging.SetupFromContext(ctx)
		return err
	}
	app.After = func(ctx *cli.Context) error {
		if closeLog != nil {
			closeLog()
		}
		return nil
	}
	app.Commands = []*cli.Command{
		commandGenerate,
		commandDerive,
		commandCreate,
		commandConfigure,
		commandApprove,
		commandDeposit,
		commandApply,
		commandTransfer,
		commandWithdraw,
		commandBalance,
		commandCredits,
		commandAirdrop,
		commandCreateMint,
		commandMintTo,
	}
}

// Commonly used command line flags.
var (
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

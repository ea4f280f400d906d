package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/internal/cttracker"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/tos-network/ctoken/token"
	"github.com/urfave/cli/v2"
)

var (
	transferToFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "base58 owner of the destination account",
	}
	trackFlag = &cli.PathFlag{
		Name:  "track",
		Usage: "record the observed balances in this file and refuse to go backwards",
	}
	trackAcceptRollbackFlag = &cli.BoolFlag{
		Name:  "track-accept-rollback",
		Usage: "accept a ledger that moved backwards since the last --track observation",
	}
	nonConfidentialFlag = &cli.BoolFlag{
		Name:  "non-confidential",
		Usage: "toggle public credits instead of confidential ones",
	}
)

var commandDeposit = &cli.Command{
	Name:      "deposit",
	Usage:     "move public tokens into the pending confidential balance",
	ArgsUsage: "<amount>",
	Flags:     sessionFlags,
	Action: func(ctx *cli.Context) error {
		amount, err := amountArg(ctx)
		if err != nil {
			return err
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		if err := s.manager.Deposit(ctx.Context, acct, s.owner, amount); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Deposited %d into the pending balance of %s\n", amount, acct.Address)
		return nil
	},
}

var commandApply = &cli.Command{
	Name:  "apply",
	Usage: "fold the pending balance into the available balance",
	Flags: sessionFlags,
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		available, err := s.manager.ApplyPendingBalance(ctx.Context, acct, s.owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Available balance of %s is now %d\n", acct.Address, available)
		return nil
	},
}

var commandTransfer = &cli.Command{
	Name:      "transfer",
	Usage:     "send from the available balance to another owner's pending balance",
	ArgsUsage: "<amount>",
	Flags:     append([]cli.Flag{transferToFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		amount, err := amountArg(ctx)
		if err != nil {
			return err
		}
		to, err := utils.ParseAddress("destination owner", ctx.String(transferToFlag.Name))
		if err != nil {
			return err
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		dest := token.DeriveAccountAddress(to, s.mint)
		if err := s.manager.Transfer(ctx.Context, acct, dest, s.owner, amount); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Transferred %d from %s to %s\n", amount, acct.Address, dest)
		return nil
	},
}

var commandWithdraw = &cli.Command{
	Name:      "withdraw",
	Usage:     "move tokens from the available balance back to the public balance",
	ArgsUsage: "<amount>",
	Flags:     sessionFlags,
	Action: func(ctx *cli.Context) error {
		amount, err := amountArg(ctx)
		if err != nil {
			return err
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		if err := s.manager.Withdraw(ctx.Context, acct, s.owner, amount); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Withdrew %d to the public balance of %s\n", amount, acct.Address)
		return nil
	},
}

var commandBalance = &cli.Command{
	Name:  "balance",
	Usage: "decrypt and show the account balances",
	Description: `
Balances are decrypted locally; keys never leave this machine.

With --track the observation is stored in a file and compared with the
previous one, so a ledger that was reset or restored from an older snapshot
is noticed.`,
	Flags: append([]cli.Flag{jsonFlag, trackFlag, trackAcceptRollbackFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		b, err := s.manager.Balances(ctx.Context, acct, s.owner)
		if err != nil {
			return err
		}
		obs := cttracker.Observe(acct, b, b.Slot)
		if path := ctx.Path(trackFlag.Name); path != "" {
			path = flags.ExpandPath(path)
			prev, err := cttracker.Load(path)
			if err != nil {
				return err
			}
			if err := cttracker.Validate(prev, obs, ctx.Bool(trackAcceptRollbackFlag.Name)); err != nil {
				return err
			}
			if err := cttracker.Save(path, obs); err != nil {
				return err
			}
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, obs)
		}
		table := tablewriter.NewWriter(ctx.App.Writer)
		table.SetHeader([]string{"Account", "State", "Public", "Pending", "Available", "Credits", "Slot"})
		table.Append([]string{
			obs.Account,
			obs.Lifecycle,
			strconv.FormatUint(b.Public, 10),
			strconv.FormatUint(b.Pending, 10),
			strconv.FormatUint(b.Available, 10),
			fmt.Sprintf("%d/%d", b.PendingCredits, b.MaxPendingCredits),
			strconv.FormatUint(b.Slot, 10),
		})
		table.Render()
		return nil
	},
}

var commandCredits = &cli.Command{
	Name:      "credits",
	Usage:     "allow or refuse incoming credits",
	ArgsUsage: "<enable|disable>",
	Flags:     append([]cli.Flag{nonConfidentialFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		mode := ctx.Args().First()
		if ctx.NArg() != 1 || (mode != "enable" && mode != "disable") {
			return fmt.Errorf("usage: ctkey credits [options] <enable|disable>")
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		m := s.manager
		nonConf := ctx.Bool(nonConfidentialFlag.Name)
		switch {
		case mode == "enable" && nonConf:
			err = m.EnableNonConfidentialCredits(ctx.Context, acct, s.owner)
		case mode == "enable":
			err = m.EnableConfidentialCredits(ctx.Context, acct, s.owner)
		case nonConf:
			err = m.DisableNonConfidentialCredits(ctx.Context, acct, s.owner)
		default:
			err = m.DisableConfidentialCredits(ctx.Context, acct, s.owner)
		}
		if err != nil {
			return err
		}
		kind := "confidential"
		if nonConf {
			kind = "non-confidential"
		}
		fmt.Fprintf(ctx.App.Writer, "%s credits %sd on %s\n", kind, mode, acct.Address)
		return nil
	},
}

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/core/confidential"
	"github.com/tos-network/ctoken/core/keymaterial"
	"github.com/tos-network/ctoken/token"
	"github.com/urfave/cli/v2"
)

type outputDerive struct {
	Owner         string `json:"owner"`
	Mint          string `json:"mint"`
	Account       string `json:"account"`
	ElGamalPubkey string `json:"elgamalPubkey"`
}

type outputAccount struct {
	Account string `json:"account"`
	State   string `json:"state"`
}

var (
	baseOnlyFlag = &cli.BoolFlag{
		Name:  "base-only",
		Usage: "create the account without confidential extension space",
	}
	noConfigureFlag = &cli.BoolFlag{
		Name:  "no-configure",
		Usage: "stop after reallocating; configure later with 'ctkey configure'",
	}
	accountOwnerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "base58 owner of the account to approve",
	}
)

var commandDerive = &cli.Command{
	Name:  "derive",
	Usage: "print the account address and ElGamal public key for a mint",
	Description: `
Derive the associated token account of the keyfile owner and the ElGamal
public key bound to it. Nothing is sent to the ledger.`,
	Flags: []cli.Flag{jsonFlag, utils.KeyFileFlag, utils.MintFlag},
	Action: func(ctx *cli.Context) error {
		owner, err := utils.LoadWallet(ctx, utils.KeyFileFlag)
		if err != nil {
			return err
		}
		mint, err := utils.ParseAddress("mint", ctx.String(utils.MintFlag.Name))
		if err != nil {
			return err
		}
		account := token.DeriveAccountAddress(owner.PublicKey(), mint)
		kp, err := keymaterial.DeriveElGamal(owner, account)
		if err != nil {
			return err
		}
		pub := kp.PublicKey()
		out := outputDerive{
			Owner:         owner.PublicKey().String(),
			Mint:          mint.String(),
			Account:       account.String(),
			ElGamalPubkey: hex.EncodeToString(pub[:]),
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Account:       ", out.Account)
		fmt.Fprintln(ctx.App.Writer, "ElGamal pubkey:", out.ElGamalPubkey)
		return nil
	},
}

var commandCreate = &cli.Command{
	Name:  "create",
	Usage: "create and configure the confidential token account",
	Flags: append([]cli.Flag{jsonFlag, baseOnlyFlag, noConfigureFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		var acct *confidential.Account
		switch {
		case ctx.Bool(baseOnlyFlag.Name):
			acct, err = s.manager.CreateBaseOnly(ctx.Context, s.owner, s.mint)
		case ctx.Bool(noConfigureFlag.Name):
			acct, err = s.manager.Create(ctx.Context, s.owner, s.mint)
		default:
			acct, err = s.manager.CreateAndConfigure(ctx.Context, s.owner, s.mint)
		}
		if err != nil {
			return err
		}
		return printAccount(ctx, outputAccount{Account: acct.Address.String(), State: acct.State.String()})
	},
}

var commandConfigure = &cli.Command{
	Name:  "configure",
	Usage: "enable confidential transfers on a reallocated account",
	Flags: append([]cli.Flag{jsonFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, err := s.account(ctx)
		if err != nil {
			return err
		}
		if err := s.manager.Configure(ctx.Context, acct, s.owner); err != nil {
			return err
		}
		return printAccount(ctx, outputAccount{Account: acct.Address.String(), State: acct.State.String()})
	},
}

var commandApprove = &cli.Command{
	Name:  "approve",
	Usage: "approve another owner's account as the mint's confidential authority",
	Description: `
The keyfile must hold the mint authority. Only needed on mints that do not
auto-approve new accounts.`,
	Flags: append([]cli.Flag{accountOwnerFlag}, sessionFlags...),
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		owner, err := utils.ParseAddress("owner", ctx.String(accountOwnerFlag.Name))
		if err != nil {
			return err
		}
		acct, err := s.manager.Open(ctx.Context, owner, s.mint)
		if err != nil {
			return err
		}
		if err := s.manager.ApproveAccount(ctx.Context, acct, s.owner); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, "Approved", acct.Address)
		return nil
	},
}

func printAccount(ctx *cli.Context, out outputAccount) error {
	if ctx.Bool(jsonFlag.Name) {
		return printJSON(ctx.App.Writer, out)
	}
	fmt.Fprintf(ctx.App.Writer, "Account %s is %s\n", out.Account, out.State)
	return nil
}

package main

import (
	"fmt"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/ledger/ledgerclient"
	"github.com/tos-network/ctoken/token"
	"github.com/urfave/cli/v2"
)

// The commands below use the ledger's faucet endpoints, which ctledger only
// serves with --faucet.

var (
	decimalsFlag = &cli.UintFlag{
		Name:  "decimals",
		Usage: "decimals of the new mint",
		Value: 2,
	}
	manualApprovalFlag = &cli.BoolFlag{
		Name:  "manual-approval",
		Usage: "require the mint authority to approve each confidential account",
	}
	recipientFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "base58 recipient (defaults to the keyfile owner)",
	}
)

func recipient(ctx *cli.Context) (string, error) {
	if to := ctx.String(recipientFlag.Name); to != "" {
		return to, nil
	}
	w, err := utils.LoadWallet(ctx, utils.KeyFileFlag)
	if err != nil {
		return "", err
	}
	return w.PublicKey().String(), nil
}

var commandAirdrop = &cli.Command{
	Name:      "airdrop",
	Usage:     "request lamports from the ledger faucet",
	ArgsUsage: "<lamports>",
	Flags:     []cli.Flag{utils.EndpointFlag, utils.KeyFileFlag, recipientFlag},
	Action: func(ctx *cli.Context) error {
		lamports, err := amountArg(ctx)
		if err != nil {
			return err
		}
		to, err := recipient(ctx)
		if err != nil {
			return err
		}
		addr, err := utils.ParseAddress("recipient", to)
		if err != nil {
			return err
		}
		client := ledgerclient.Dial(ctx.String(utils.EndpointFlag.Name))
		if err := client.Airdrop(ctx.Context, addr, lamports); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Airdropped %d lamports to %s\n", lamports, addr)
		return nil
	},
}

var commandCreateMint = &cli.Command{
	Name:  "create-mint",
	Usage: "create a confidential mint with the keyfile owner as authority",
	Flags: []cli.Flag{jsonFlag, utils.EndpointFlag, utils.KeyFileFlag, decimalsFlag, manualApprovalFlag},
	Action: func(ctx *cli.Context) error {
		authority, err := utils.LoadWallet(ctx, utils.KeyFileFlag)
		if err != nil {
			return err
		}
		decimals := ctx.Uint(decimalsFlag.Name)
		if decimals > 18 {
			return fmt.Errorf("decimals %d out of range", decimals)
		}
		mint, err := wallet.New()
		if err != nil {
			return err
		}
		client := ledgerclient.Dial(ctx.String(utils.EndpointFlag.Name))
		err = client.CreateMint(ctx.Context, mint.PublicKey(), authority.PublicKey(), uint8(decimals), true, !ctx.Bool(manualApprovalFlag.Name))
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, map[string]string{"mint": mint.PublicKey().String()})
		}
		fmt.Fprintln(ctx.App.Writer, "Mint:", mint.PublicKey())
		return nil
	},
}

var commandMintTo = &cli.Command{
	Name:      "mint-to",
	Usage:     "mint public tokens into an owner's token account",
	ArgsUsage: "<amount>",
	Flags:     []cli.Flag{utils.EndpointFlag, utils.KeyFileFlag, utils.MintFlag, recipientFlag},
	Action: func(ctx *cli.Context) error {
		amount, err := amountArg(ctx)
		if err != nil {
			return err
		}
		mint, err := utils.ParseAddress("mint", ctx.String(utils.MintFlag.Name))
		if err != nil {
			return err
		}
		to, err := recipient(ctx)
		if err != nil {
			return err
		}
		owner, err := utils.ParseAddress("recipient", to)
		if err != nil {
			return err
		}
		dest := token.DeriveAccountAddress(owner, mint)
		client := ledgerclient.Dial(ctx.String(utils.EndpointFlag.Name))
		if err := client.MintTo(ctx.Context, mint, dest, amount); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Minted %d to %s\n", amount, dest)
		return nil
	},
}

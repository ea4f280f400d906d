package main

import (
	"fmt"
	"os"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/urfave/cli/v2"
)

type outputGenerate struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

var (
	mnemonicGenerateFlag = &cli.BoolFlag{
		Name:  "mnemonic-generate",
		Usage: "Generate a BIP39 mnemonic and derive the key using --hd-path",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "Use an existing BIP39 mnemonic to derive the key",
	}
	mnemonicPassphraseFlag = &cli.StringFlag{
		Name:  "mnemonic-passphrase",
		Usage: "Optional BIP39 passphrase for mnemonic-to-seed",
	}
	mnemonicBitsFlag = &cli.IntFlag{
		Name:  "mnemonic-bits",
		Usage: "Entropy bits for a generated mnemonic (128,160,192,224,256)",
		Value: 128,
	}
	hdPathFlag = &cli.StringFlag{
		Name:  "hd-path",
		Usage: "Hardened derivation path used with mnemonics",
		Value: wallet.DefaultHDPath,
	}
	base58KeyFlag = &cli.StringFlag{
		Name:  "base58",
		Usage: "Import an existing base58 encoded keypair",
	}
)

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate a new keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Generate a new keyfile at the given path.

The key is random unless --mnemonic, --mnemonic-generate or --base58 is given.`,
	Flags: []cli.Flag{
		jsonFlag,
		mnemonicGenerateFlag,
		mnemonicFlag,
		mnemonicPassphraseFlag,
		mnemonicBitsFlag,
		hdPathFlag,
		base58KeyFlag,
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("usage: ctkey generate <keyfile>")
		}
		if err := flags.CheckExclusive(ctx, mnemonicGenerateFlag.Name, mnemonicFlag.Name, base58KeyFlag.Name); err != nil {
			return err
		}
		path := flags.ExpandPath(ctx.Args().First())
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("keyfile already exists at %s", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking keyfile: %w", err)
		}

		var (
			w        *wallet.Wallet
			mnemonic = ctx.String(mnemonicFlag.Name)
			err      error
		)
		if ctx.Bool(mnemonicGenerateFlag.Name) {
			if mnemonic, err = wallet.GenerateMnemonic(ctx.Int(mnemonicBitsFlag.Name)); err != nil {
				return err
			}
		}
		switch {
		case mnemonic != "":
			w, err = wallet.FromMnemonic(mnemonic, ctx.String(mnemonicPassphraseFlag.Name), ctx.String(hdPathFlag.Name))
		case ctx.IsSet(base58KeyFlag.Name):
			w, err = wallet.FromBase58(ctx.String(base58KeyFlag.Name))
		default:
			w, err = wallet.New()
		}
		if err != nil {
			return err
		}
		if err := wallet.Save(path, w); err != nil {
			return fmt.Errorf("failed to write keyfile to %s: %w", path, err)
		}

		out := outputGenerate{Address: w.PublicKey().String()}
		if ctx.Bool(mnemonicGenerateFlag.Name) {
			out.Mnemonic = mnemonic
		}
		if ctx.Bool(jsonFlag.Name) {
			return printJSON(ctx.App.Writer, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Address:", out.Address)
		if out.Mnemonic != "" {
			fmt.Fprintln(ctx.App.Writer, "Mnemonic:", out.Mnemonic)
		}
		return nil
	},
}

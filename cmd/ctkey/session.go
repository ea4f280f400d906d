package main

import (
	"fmt"
	"strconv"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/confidential"
	"github.com/tos-network/ctoken/core/submitter"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/tos-network/ctoken/ledger/ledgerclient"
	"github.com/urfave/cli/v2"
)

var (
	maxCreditsFlag = &cli.Uint64Flag{
		Name:     "max-credits",
		Usage:    "Pending balance credit limit written at configure time (0 selects the default)",
		Category: flags.AccountCategory,
	}
	computePriceFlag = &cli.Uint64Flag{
		Name:     "compute-price",
		Usage:    "Compute unit price in micro-lamports",
		Category: flags.SubmitCategory,
	}
	estimateFlag = &cli.BoolFlag{
		Name:     "estimate",
		Usage:    "Simulate bundles first and size their compute limit from the result",
		Category: flags.SubmitCategory,
	}
	confirmTimeoutFlag = &cli.DurationFlag{
		Name:     "confirm-timeout",
		Usage:    "How long to wait for a bundle receipt",
		Value:    submitter.DefaultConfig.ConfirmTimeout,
		Category: flags.SubmitCategory,
	}
)

// sessionFlags are accepted by every command that talks to the ledger as an
// account owner.
var sessionFlags = []cli.Flag{
	utils.EndpointFlag,
	utils.KeyFileFlag,
	utils.FeePayerFlag,
	utils.MintFlag,
	maxCreditsFlag,
	computePriceFlag,
	estimateFlag,
	confirmTimeoutFlag,
}

// session bundles what a command needs to act on the owner's account.
type session struct {
	client  *ledgerclient.Client
	owner   *wallet.Wallet
	mint    common.Address
	manager *confidential.Manager
}

func openSession(ctx *cli.Context) (*session, error) {
	owner, err := utils.LoadWallet(ctx, utils.KeyFileFlag)
	if err != nil {
		return nil, err
	}
	payer := owner
	if ctx.IsSet(utils.FeePayerFlag.Name) {
		if payer, err = utils.LoadWallet(ctx, utils.FeePayerFlag); err != nil {
			return nil, err
		}
	}
	mint, err := utils.ParseAddress("mint", ctx.String(utils.MintFlag.Name))
	if err != nil {
		return nil, err
	}
	client := ledgerclient.Dial(ctx.String(utils.EndpointFlag.Name))
	subCfg := submitter.DefaultConfig
	subCfg.ConfirmTimeout = ctx.Duration(confirmTimeoutFlag.Name)
	m, err := confidential.New(confidential.Config{
		Backend:           client,
		FeePayer:          payer,
		MaxPendingCredits: ctx.Uint64(maxCreditsFlag.Name),
		ComputeUnitPrice:  ctx.Uint64(computePriceFlag.Name),
		EstimateCompute:   ctx.Bool(estimateFlag.Name),
		Submitter:         subCfg,
	})
	if err != nil {
		return nil, err
	}
	return &session{client: client, owner: owner, mint: mint, manager: m}, nil
}

// account opens the owner's associated token account for the mint.
func (s *session) account(ctx *cli.Context) (*confidential.Account, error) {
	return s.manager.Open(ctx.Context, s.owner.PublicKey(), s.mint)
}

// amountArg parses the single positional amount of a command.
func amountArg(ctx *cli.Context) (uint64, error) {
	if ctx.NArg() != 1 {
		return 0, fmt.Errorf("usage: ctkey %s [options] %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	v, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", ctx.Args().First(), err)
	}
	return v, nil
}

// ctledger runs the reference confidential token ledger behind its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/tos-network/ctoken/internal/ledgerapi"
	"github.com/tos-network/ctoken/internal/logging"
	"github.com/tos-network/ctoken/ledger"
	"github.com/tos-network/ctoken/token"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var (
	faucetFlag = &cli.BoolFlag{
		Name:     "faucet",
		Usage:    "Serve the airdrop and mint endpoints",
		Category: flags.APICategory,
	}
	rateLimitFlag = &cli.Float64Flag{
		Name:     "http.ratelimit",
		Usage:    "Requests per second allowed per client (0 disables limiting)",
		Category: flags.APICategory,
	}

	corsFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of browser origins allowed to call the API",
		Category: flags.APICategory,
	}

	ledgerFlags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.DataDirFlag,
		utils.HTTPListenFlag,
		faucetFlag,
		rateLimitFlag,
		corsFlag,
	}
)

var app = flags.NewApp(gitCommit, gitDate, "the confidential token reference ledger")

func init() {
	app.Action = run
	app.Flags = append(ledgerFlags, logging.Flags...)
	app.Commands = []*cli.Command{dumpConfigCommand}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	closeLog, err := logging.SetupFromContext(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer l.Close()

	if err := createMints(ctx.Context, l, cfg.Mints); err != nil {
		return err
	}
	api, err := ledgerapi.New(l, cfg.API)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error {
		log.Info("Starting ledger API", "addr", cfg.HTTP.Addr, "datadir", cfg.Ledger.DataDir, "faucet", cfg.API.Faucet)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down ledger API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// createMints installs the configured mints, skipping those already present.
func createMints(ctx context.Context, l *ledger.Ledger, mints []ledgerapi.CreateMintRequest) error {
	for _, m := range mints {
		err := l.CreateMint(ctx, m.Mint, m.Authority, m.Decimals, m.Confidential, m.AutoApprove)
		switch {
		case errors.Is(err, token.ErrAccountAlreadyInUse):
			log.Debug("Mint already exists", "mint", m.Mint)
		case err != nil:
			return fmt.Errorf("create mint %v: %w", m.Mint, err)
		}
	}
	return nil
}

// Package logging installs the process-wide log handler for the ctoken
// commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tos-network/ctoken/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: flags.LoggingCategory,
	}
	LogFileFlag = &cli.PathFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr",
		Category: flags.LoggingCategory,
	}
)

// Flags holds all command-line flags required for logging.
var Flags = []cli.Flag{VerbosityFlag, LogJSONFlag, LogFileFlag}

// NewHandler returns a handler writing to w that drops records above
// verbosity. Colour is only used for terminals.
func NewHandler(w io.Writer, verbosity int, json bool) slog.Handler {
	var handler slog.Handler
	if json {
		handler = log.JSONHandler(w)
	} else {
		useColor := false
		if f, ok := w.(*os.File); ok {
			useColor = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
			if useColor {
				w = colorable.NewColorable(f)
			}
		}
		handler = log.NewTerminalHandler(w, useColor)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(verbosity))
	return glogger
}

// Setup installs the root logger on stderr.
func Setup(verbosity int, json bool) {
	log.SetDefault(log.NewLogger(NewHandler(os.Stderr, verbosity, json)))
}

// SetupFromContext installs the root logger from the logging flags. The
// returned function closes the log file, if any.
func SetupFromContext(ctx *cli.Context) (func(), error) {
	out := io.Writer(os.Stderr)
	closer := func() {}
	if path := ctx.Path(LogFileFlag.Name); path != "" {
		f, err := os.OpenFile(flags.ExpandPath(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return closer, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = func() { f.Close() }
	}
	log.SetDefault(log.NewLogger(NewHandler(out, ctx.Int(VerbosityFlag.Name), ctx.Bool(LogJSONFlag.Name))))
	return closer, nil
}

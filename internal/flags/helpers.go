package flags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tos-network/ctoken/params"
	"github.com/urfave/cli/v2"
)

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2024-2026 The ctoken Authors"
	return app
}

// ExpandPath expands a leading ~ to the home directory and cleans the
// result.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(os.ExpandEnv(p))
}

// CheckExclusive verifies that at most one of the named flags is set.
func CheckExclusive(ctx *cli.Context, names ...string) error {
	var set []string
	for _, name := range names {
		if ctx.IsSet(name) {
			set = append(set, "--"+name)
		}
	}
	if len(set) > 1 {
		return fmt.Errorf("flags %s can't be used at the same time", strings.Join(set, ", "))
	}
	return nil
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/ctoken/cmd/utils"
	"github.com/tos-network/ctoken/internal/ledgerapi"
	"github.com/tos-network/ctoken/ledger"
	"github.com/urfave/cli/v2"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Flags:       ledgerFlags,
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type httpConfig struct {
	Addr string
}

type ctledgerConfig struct {
	Ledger ledger.Config
	API    ledgerapi.Config
	HTTP   httpConfig

	// Mints are created at startup when absent from the account store.
	Mints []ledgerapi.CreateMintRequest `toml:",omitempty"`
}

func defaultConfig() ctledgerConfig {
	return ctledgerConfig{
		Ledger: ledger.DefaultConfig,
		API:    ledgerapi.DefaultConfig,
		HTTP:   httpConfig{Addr: utils.HTTPListenFlag.Value},
	}
}

func loadConfig(file string, cfg *ctledgerConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the config file, if any, and applies flag overrides.
func makeConfig(ctx *cli.Context) (ctledgerConfig, error) {
	cfg := defaultConfig()
	if file := ctx.Path(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(utils.DataDirFlag.Name) {
		cfg.Ledger.DataDir = ctx.Path(utils.DataDirFlag.Name)
	}
	if ctx.IsSet(utils.HTTPListenFlag.Name) {
		cfg.HTTP.Addr = ctx.String(utils.HTTPListenFlag.Name)
	}
	if ctx.IsSet(faucetFlag.Name) {
		cfg.API.Faucet = ctx.Bool(faucetFlag.Name)
	}
	if ctx.IsSet(rateLimitFlag.Name) {
		cfg.API.RequestsPerSecond = ctx.Float64(rateLimitFlag.Name)
	}
	if ctx.IsSet(corsFlag.Name) {
		cfg.API.CORSOrigins = utils.SplitAndTrim(ctx.String(corsFlag.Name))
	}
	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}

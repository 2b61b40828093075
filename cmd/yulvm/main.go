// yulvm runs, deploys and inspects stack-machine contracts.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/clydemeng/yulvm/bridge"
	"github.com/clydemeng/yulvm/config"
	"github.com/clydemeng/yulvm/core"
	"github.com/clydemeng/yulvm/storage"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "Gas limit for execution (overrides the config file)",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "yulvm",
		Usage: "contract runtime for the stack machine",
		Flags: []cli.Flag{configFlag, verbosityFlag, gasFlag},
		Before: func(ctx *cli.Context) error {
			lvl := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
			log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			callCommand,
			deployCommand,
			inspectCommand,
			statsCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config if given and applies the global overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if file := ctx.String(configFlag.Name); file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(gasFlag.Name) {
		cfg.GasLimit = ctx.Uint64(gasFlag.Name)
	}
	return cfg, cfg.Validate()
}

// newRuntime builds a runtime from the command line. The returned closer
// releases the storage backend.
func newRuntime(ctx *cli.Context, debug bool) (*core.Runtime, func(), error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg.Debug = cfg.Debug || debug

	sto, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	br, err := bridge.New(cfg.Engine, bridge.Options{})
	if err != nil {
		sto.Close()
		return nil, nil, err
	}
	rt, err := core.NewRuntime(cfg, sto, br)
	if err != nil {
		sto.Close()
		return nil, nil, err
	}
	closer := func() {
		if err := sto.Close(); err != nil {
			log.Warn("Failed to close storage", "err", err)
		}
	}
	return rt, closer, nil
}

// readCode accepts hex on the command line or @path to a file holding hex.
func readCode(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		arg = strings.TrimSpace(string(data))
	}
	if arg == "" {
		return nil, nil
	}
	if !strings.HasPrefix(arg, "0x") && !strings.HasPrefix(arg, "0X") {
		arg = "0x" + arg
	}
	code, err := hexutil.Decode(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", arg, err)
	}
	return code, nil
}

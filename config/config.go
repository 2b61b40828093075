// Package config holds the runtime configuration and its TOML encoding.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/clydemeng/yulvm/bridge"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/clydemeng/yulvm/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// Config is the full runtime configuration.
type Config struct {
	GasLimit      uint64
	BaseGasCost   uint64
	GasCosts      map[string]uint64 `toml:",omitempty"` // named-operation overrides
	StrictOpcodes bool

	// Deployer is the account that owns contracts created by DeployContract.
	Deployer             string
	RollbackFailedDeploy bool

	Engine string
	Debug  bool

	Storage storage.Config
}

// Defaults contains the default settings.
var Defaults = Config{
	GasLimit:      10_000_000,
	BaseGasCost:   vm.DefaultBaseGas,
	StrictOpcodes: true,
	Deployer:      "0x00000000000000000000000000000000000d3910",
	Engine:        bridge.EngineInterpreter,
	Storage:       storage.DefaultConfig,
}

// Default returns a copy of Defaults that is safe to modify.
func Default() Config {
	cfg := Defaults
	cfg.GasCosts = make(map[string]uint64)
	return cfg
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

// Load reads a TOML file on top of the defaults and validates the result.
func Load(file string) (Config, error) {
	cfg := Default()
	f, err := os.Open(file)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", types.ErrConfiguration, err)
	}
	defer f.Close()

	if err := Decode(bufio.NewReader(f), &cfg); err != nil {
		// Add file name to errors that have a line number.
		var lerr *toml.LineError
		if errors.As(err, &lerr) {
			err = fmt.Errorf("%s, %w", file, err)
		}
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode parses TOML from r into cfg.
func Decode(r io.Reader, cfg *Config) error {
	if err := tomlSettings.NewDecoder(r).Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, err)
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Validate rejects configurations the runtime cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.GasLimit == 0:
		return fmt.Errorf("%w: gas limit must be positive", types.ErrConfiguration)
	case c.BaseGasCost > c.GasLimit:
		return fmt.Errorf("%w: base gas cost %d exceeds gas limit %d", types.ErrConfiguration, c.BaseGasCost, c.GasLimit)
	case !common.IsHexAddress(c.Deployer):
		return fmt.Errorf("%w: invalid deployer address %q", types.ErrConfiguration, c.Deployer)
	case c.Storage.CacheMB < 0:
		return fmt.Errorf("%w: negative storage cache size", types.ErrConfiguration)
	}
	switch c.Storage.Backend {
	case "", storage.LevelDB, storage.Pebble:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", types.ErrConfiguration, c.Storage.Backend)
	}
	if _, err := bridge.New(c.Engine, bridge.Options{}); err != nil {
		return err
	}
	return nil
}

// DeployerAddress returns the configured deployer.
func (c Config) DeployerAddress() types.Address {
	return types.HexToAddress(c.Deployer)
}

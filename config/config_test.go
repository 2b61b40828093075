package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/clydemeng/yulvm/storage"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
GasLimit = 500000
StrictOpcodes = false
RollbackFailedDeploy = true
Debug = true

[GasCosts]
sstore = 20000

[Storage]
Backend = "pebble"
CacheMB = 8
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yulvm.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.GasCosts)
	require.Nil(t, Defaults.GasCosts)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleTOML))
	require.NoError(t, err)
	require.Equal(t, uint64(500000), cfg.GasLimit)
	require.Equal(t, Defaults.BaseGasCost, cfg.BaseGasCost)
	require.False(t, cfg.StrictOpcodes)
	require.True(t, cfg.RollbackFailedDeploy)
	require.True(t, cfg.Debug)
	require.Equal(t, uint64(20000), cfg.GasCosts["sstore"])
	require.Equal(t, storage.Pebble, cfg.Storage.Backend)
	require.Equal(t, 8, cfg.Storage.CacheMB)
	require.Equal(t, Defaults.Deployer, cfg.Deployer)
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(writeFile(t, "GasLimitt = 1\n"))
	require.ErrorIs(t, err, types.ErrConfiguration)
	require.Contains(t, err.Error(), "GasLimitt")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero gas":      func(c *Config) { c.GasLimit = 0 },
		"base too high": func(c *Config) { c.BaseGasCost = c.GasLimit + 1 },
		"bad deployer":  func(c *Config) { c.Deployer = "0x1234" },
		"bad backend":   func(c *Config) { c.Storage.Backend = "rocksdb" },
		"bad engine":    func(c *Config) { c.Engine = "wasm" },
		"bad cache":     func(c *Config) { c.Storage.CacheMB = -1 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		require.ErrorIs(t, cfg.Validate(), types.ErrConfiguration, name)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.GasCosts["sload"] = 800
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &cfg))
	require.True(t, strings.Contains(buf.String(), "GasLimit"))

	back := Default()
	require.NoError(t, Decode(&buf, &back))
	require.Equal(t, cfg, back)
}

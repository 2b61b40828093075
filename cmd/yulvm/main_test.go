package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/stretchr/testify/require"
)

const (
	addHex  = "600160020160005260206000f3"
	loopHex = "5b600056"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"yulvm", "--verbosity", "0"}, args...))
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := runApp(t, "run", addHex)
	require.NoError(t, err)
	require.Contains(t, out, "status:  success")
	require.Contains(t, out, "0x0000000000000000000000000000000000000000000000000000000000000003")

	out, err = runApp(t, "run", "--debug", addHex)
	require.NoError(t, err)
	require.Contains(t, out, "ADD")

	out, err = runApp(t, "run", "--dump", addHex)
	require.NoError(t, err)
	require.Contains(t, out, "Success: (bool) true")

	_, err = runApp(t, "run", "zz")
	require.Error(t, err)
}

func TestGasFlagAndConfig(t *testing.T) {
	out, err := runApp(t, "--gas", "100", "run", loopHex)
	require.NoError(t, err)
	require.Contains(t, out, "status:  failed")
	require.Contains(t, out, "gas:     100/100")

	file := filepath.Join(t.TempDir(), "yulvm.toml")
	require.NoError(t, os.WriteFile(file, []byte("GasLimit = 50\n"), 0644))
	out, err = runApp(t, "--config", file, "run", loopHex)
	require.NoError(t, err)
	require.Contains(t, out, "gas:     50/50")

	require.NoError(t, os.WriteFile(file, []byte("Bogus = 1\n"), 0644))
	_, err = runApp(t, "--config", file, "run", loopHex)
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestCallCommand(t *testing.T) {
	out, err := runApp(t, "call", addHex, "add(uint256,uint256)", "1", "2")
	require.NoError(t, err)
	require.Contains(t, out, "status:  success")

	_, err = runApp(t, "call", addHex, "add(uint256,uint256)", "1")
	require.ErrorIs(t, err, types.ErrInvalidOperation)
}

func TestDeployAndInspect(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "add.nef")
	out, err := runApp(t, "deploy", "--out", bin, addHex)
	require.NoError(t, err)
	require.Contains(t, out, "address: 0x")

	out, err = runApp(t, "inspect", bin)
	require.NoError(t, err)
	require.Contains(t, out, "NEF3")
	require.Contains(t, out, "yulvm")
	require.Contains(t, out, "00000: PUSH1 0x01")
	require.Contains(t, out, "00012: RETURN")

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	data[len(data)-5] ^= 0xff
	require.NoError(t, os.WriteFile(bin, data, 0644))
	_, err = runApp(t, "inspect", bin)
	require.Error(t, err)

	_, err = runApp(t, "deploy", "--manifest", filepath.Join(dir, "m.json"), addHex)
	require.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	out, err := runApp(t, "stats", addHex)
	require.NoError(t, err)
	require.Contains(t, out, "STATISTIC")
	require.Contains(t, out, "Instructions")
	require.Contains(t, out, "success")
}

func TestParseArgs(t *testing.T) {
	vals, err := parseArgs("f(address,bool,int8,bytes,string)", []string{
		"0x00000000000000000000000000000000000000aa", "true", "-5", "0xbeef", "hi",
	})
	require.NoError(t, err)
	require.Equal(t, types.ValueAddress, vals[0].Kind)
	require.True(t, vals[1].Bool)
	require.Equal(t, int64(-5), vals[2].Int)
	require.Equal(t, []byte{0xbe, 0xef}, vals[3].Bytes)
	require.Equal(t, "hi", vals[4].Str)

	vals, err = parseArgs("f", []string{"7", "-1", "word"})
	require.NoError(t, err)
	require.Equal(t, types.ValueUint, vals[0].Kind)
	require.Equal(t, types.ValueInt, vals[1].Kind)
	require.Equal(t, types.ValueString, vals[2].Kind)

	_, err = parseArgs("f(uint256)", []string{"x"})
	require.Error(t, err)
}

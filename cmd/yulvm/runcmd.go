package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/clydemeng/yulvm/abi"
	"github.com/clydemeng/yulvm/container"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
)

var (
	dumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the full execution result",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Record a per-instruction trace",
	}
	abiFlag = &cli.StringFlag{
		Name:  "abi",
		Usage: "JSON ABI describing the contract interface",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Write the compiled container to this file",
	}
	manifestFlag = &cli.StringFlag{
		Name:  "manifest",
		Usage: "Write the contract manifest to this file (requires --abi)",
	}

	runCommand = &cli.Command{
		Action:    runCmd,
		Name:      "run",
		Usage:     "Execute bytecode with optional input",
		ArgsUsage: "<code> [input]",
		Flags:     []cli.Flag{dumpFlag, debugFlag},
		Description: `
Executes hex-encoded bytecode against a fresh state. Either argument may be
given as @file to read hex from a file.`,
	}
	callCommand = &cli.Command{
		Action:    callCmd,
		Name:      "call",
		Usage:     "Call a function with ABI-encoded arguments",
		ArgsUsage: "<code> <signature> [args...]",
		Flags:     []cli.Flag{dumpFlag, debugFlag},
	}
	deployCommand = &cli.Command{
		Action:    deployCmd,
		Name:      "deploy",
		Usage:     "Deploy bytecode and run its constructor",
		ArgsUsage: "<code> [ctor-args]",
		Flags:     []cli.Flag{dumpFlag, abiFlag, outFlag, manifestFlag},
	}
)

func runCmd(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	code, err := readCode(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	input, err := readCode(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	rt, closer, err := newRuntime(ctx, ctx.Bool(debugFlag.Name))
	if err != nil {
		return err
	}
	defer closer()

	res, err := rt.Execute(code, input)
	if err != nil {
		return err
	}
	return printResult(ctx.App.Writer, res, ctx.Bool(dumpFlag.Name))
}

func callCmd(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	code, err := readCode(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	sig := ctx.Args().Get(1)
	args, err := parseArgs(sig, ctx.Args().Slice()[2:])
	if err != nil {
		return err
	}
	rt, closer, err := newRuntime(ctx, ctx.Bool(debugFlag.Name))
	if err != nil {
		return err
	}
	defer closer()

	res, err := rt.CallFunction(code, sig, args...)
	if err != nil {
		return err
	}
	return printResult(ctx.App.Writer, res, ctx.Bool(dumpFlag.Name))
}

func deployCmd(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	if ctx.IsSet(manifestFlag.Name) && !ctx.IsSet(abiFlag.Name) {
		return errors.New("--manifest requires --abi")
	}
	code, err := readCode(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	ctorArgs, err := readCode(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	var fns []abi.Function
	if file := ctx.String(abiFlag.Name); file != "" {
		if fns, err = loadABI(file); err != nil {
			return err
		}
	}
	rt, closer, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer closer()

	addr, res, err := rt.DeployContract(code, ctorArgs)
	var rerr *types.RuntimeError
	if err != nil && !errors.As(err, &rerr) {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "address: %s\n", addr)
	if perr := printResult(ctx.App.Writer, res, ctx.Bool(dumpFlag.Name)); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}

	art := &container.Artifact{Bytecode: code, ABI: fns, GasEstimate: res.GasUsed}
	if file := ctx.String(outFlag.Name); file != "" {
		enc, err := art.Container("yulvm", container.Version{Major: 1}).Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(file, enc, 0644); err != nil {
			return err
		}
	}
	if file := ctx.String(manifestFlag.Name); file != "" {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := art.Manifest(name, nil).WriteJSON(f); err != nil {
			return err
		}
	}
	return nil
}

func loadABI(file string) ([]abi.Function, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return abi.LoadJSON(f)
}

func printResult(w io.Writer, res *types.ExecutionResult, dump bool) error {
	if dump {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
		cfg.Fdump(w, res)
		return nil
	}
	if res.Success {
		fmt.Fprintln(w, "status:  success")
	} else {
		fmt.Fprintf(w, "status:  failed (%v)\n", res.Exception)
	}
	fmt.Fprintf(w, "gas:     %d/%d\n", res.GasUsed, res.GasLimit)
	fmt.Fprintf(w, "return:  0x%x\n", res.ReturnData)
	for _, l := range res.Logs {
		fmt.Fprintf(w, "log:     %s topics=%d data=0x%x\n", l.Address, len(l.Topics), l.Data)
	}
	for _, line := range res.StackTrace {
		fmt.Fprintln(w, line)
	}
	return nil
}

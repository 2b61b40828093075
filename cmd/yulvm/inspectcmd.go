package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/clydemeng/yulvm/container"
	"github.com/clydemeng/yulvm/core"
	"github.com/clydemeng/yulvm/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	inspectCommand = &cli.Command{
		Action:    inspectCmd,
		Name:      "inspect",
		Usage:     "Print the header, checksum and disassembly of a container file",
		ArgsUsage: "<file>",
	}
	statsCommand = &cli.Command{
		Action:    statsCmd,
		Name:      "stats",
		Usage:     "Execute bytecode and print runtime statistics",
		ArgsUsage: "<code> [input]",
	}
)

func inspectCmd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	data, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	c, err := container.Decode(data)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"Magic", string(container.Magic[:])},
		{"Compiler", c.Compiler},
		{"Version", c.Version.String()},
		{"Script", common.StorageSize(len(c.Script)).String()},
		{"Checksum", fmt.Sprintf("0x%08x", stored)},
	})
	table.Render()

	fmt.Fprintln(w)
	io.WriteString(w, vm.DisassembleString(c.Script))
	return nil
}

func statsCmd(ctx *cli.Context) error {
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
	rt, closer, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer closer()

	res, err := rt.Execute(code, input)
	if err != nil {
		return err
	}
	status := "success"
	if !res.Success {
		status = res.Exception.Kind.String()
	}
	renderStats(ctx.App.Writer, status, rt.Statistics())
	return nil
}

func renderStats(w io.Writer, status string, s core.Statistics) {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statistic", "Value"})
	table.AppendBulk([][]string{
		{"Status", status},
		{"Gas used", u(s.GasUsed)},
		{"Gas limit", u(s.GasLimit)},
		{"Instructions", u(s.Instructions)},
		{"Max stack depth", strconv.Itoa(s.MaxStackDepth)},
		{"Storage reads", u(s.StorageReads)},
		{"Storage writes", u(s.StorageWrites)},
		{"State changes", u(s.StateChanges)},
		{"Accounts", strconv.Itoa(s.Accounts.Accounts)},
		{"Contracts", strconv.Itoa(s.Accounts.Contracts)},
		{"Total balance", s.Accounts.TotalBalance.Dec()},
	})
	table.Render()
}

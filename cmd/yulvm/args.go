package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clydemeng/yulvm/abi"
	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// parseArgs converts command-line arguments into runtime values using the
// parameter types of sig. Signatures without a parameter list fall back to
// guessing each value.
func parseArgs(sig string, args []string) ([]types.RuntimeValue, error) {
	_, params, _ := abi.ParseSignature(sig)
	if len(params) > 0 && len(params) != len(args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", types.ErrInvalidOperation, sig, len(params), len(args))
	}
	out := make([]types.RuntimeValue, len(args))
	for i, arg := range args {
		typ := ""
		if len(params) > 0 {
			typ = params[i]
		}
		v, err := parseArg(typ, arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseArg(typ, arg string) (types.RuntimeValue, error) {
	switch {
	case typ == "address":
		if !common.IsHexAddress(arg) {
			return types.RuntimeValue{}, fmt.Errorf("invalid address %q", arg)
		}
		return types.AddressValue(types.HexToAddress(arg)), nil
	case typ == "bool":
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return types.RuntimeValue{}, err
		}
		return types.BoolValue(b), nil
	case typ == "string":
		return types.StringValue(arg), nil
	case strings.HasPrefix(typ, "bytes"):
		b, err := hexutil.Decode(arg)
		if err != nil {
			return types.RuntimeValue{}, err
		}
		return types.BytesValue(b), nil
	case strings.HasPrefix(typ, "uint"):
		u, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return types.RuntimeValue{}, err
		}
		return types.UintValue(u), nil
	case strings.HasPrefix(typ, "int"):
		n, err := strconv.ParseInt(arg, 0, 64)
		if err != nil {
			return types.RuntimeValue{}, err
		}
		return types.IntValue(n), nil
	case typ == "":
		if u, err := strconv.ParseUint(arg, 0, 64); err == nil {
			return types.UintValue(u), nil
		}
		if n, err := strconv.ParseInt(arg, 0, 64); err == nil {
			return types.IntValue(n), nil
		}
		if common.IsHexAddress(arg) {
			return types.AddressValue(types.HexToAddress(arg)), nil
		}
		return types.StringValue(arg), nil
	}
	return types.RuntimeValue{}, fmt.Errorf("%w: unsupported argument type %q", types.ErrInvalidOperation, typ)
}

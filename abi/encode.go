package abi

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EncodeValue encodes a single value without type information. Scalars
// become one 32-byte word (signed integers are sign-extended). Bytes and
// strings become a length word followed by the data right-padded to a word
// boundary; arrays become a length word followed by their encoded items.
func EncodeValue(v types.RuntimeValue) ([]byte, error) {
	switch v.Kind {
	case types.ValueNull:
		return make([]byte, 32), nil
	case types.ValueInt:
		w := new(uint256.Int).SetUint64(uint64(v.Int))
		if v.Int < 0 {
			w.SetUint64(uint64(-v.Int)).Neg(w)
		}
		return wordOf(w), nil
	case types.ValueUint:
		return wordOf(uint256.NewInt(v.Uint)), nil
	case types.ValueBool:
		if v.Bool {
			return wordOf(uint256.NewInt(1)), nil
		}
		return make([]byte, 32), nil
	case types.ValueAddress:
		return common.LeftPadBytes(v.Address.Bytes(), 32), nil
	case types.ValueBytes:
		return encodeDynamic(v.Bytes), nil
	case types.ValueString:
		return encodeDynamic([]byte(v.Str)), nil
	case types.ValueArray:
		out := wordOf(uint256.NewInt(uint64(len(v.Array))))
		for _, item := range v.Array {
			enc, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %s value", types.ErrInvalidOperation, v.Kind)
}

func wordOf(w *uint256.Int) []byte {
	b := w.Bytes32()
	return b[:]
}

func encodeDynamic(data []byte) []byte {
	out := wordOf(uint256.NewInt(uint64(len(data))))
	padded := make([]byte, (len(data)+31)/32*32)
	copy(padded, data)
	return append(out, padded...)
}

// EncodeCall builds call data: the selector of sig followed by the encoded
// arguments. When sig carries a parameter list matching args, the arguments
// are encoded with the standard ABI layout for those types; otherwise each
// argument is encoded with EncodeValue and concatenated.
func EncodeCall(sig string, args ...types.RuntimeValue) ([]byte, error) {
	sel := Selector(sig)
	out := append([]byte(nil), sel[:]...)

	if _, params, ok := ParseSignature(sig); ok && len(params) == len(args) {
		packed, err := packTyped(params, args)
		if err != nil {
			return nil, err
		}
		return append(out, packed...), nil
	}
	for _, arg := range args {
		enc, err := EncodeValue(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func packTyped(params []string, args []types.RuntimeValue) ([]byte, error) {
	var (
		arguments = make(abi.Arguments, len(params))
		values    = make([]any, len(params))
	)
	for i, p := range params {
		typ, err := abi.NewType(p, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %v", types.ErrInvalidOperation, i, err)
		}
		val, err := goValue(typ, args[i])
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %d (%s): %v", types.ErrInvalidOperation, i, p, err)
		}
		arguments[i] = abi.Argument{Type: typ}
		values[i] = val
	}
	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidOperation, err)
	}
	return packed, nil
}

// goValue converts v into the Go representation the ABI packer expects for
// typ.
func goValue(typ abi.Type, v types.RuntimeValue) (any, error) {
	switch typ.T {
	case abi.UintTy, abi.IntTy:
		n, err := bigOf(v)
		if err != nil {
			return nil, err
		}
		if typ.Size > 64 {
			return n, nil
		}
		if typ.T == abi.UintTy {
			if n.Sign() < 0 || n.BitLen() > typ.Size {
				return nil, fmt.Errorf("value %s overflows uint%d", n, typ.Size)
			}
			return reflect.ValueOf(n.Uint64()).Convert(typ.GetType()).Interface(), nil
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s overflows int%d", n, typ.Size)
		}
		return reflect.ValueOf(n.Int64()).Convert(typ.GetType()).Interface(), nil
	case abi.BoolTy:
		if v.Kind != types.ValueBool {
			return nil, fmt.Errorf("want bool, have %s", v.Kind)
		}
		return v.Bool, nil
	case abi.AddressTy:
		switch v.Kind {
		case types.ValueAddress:
			return v.Address.Common(), nil
		case types.ValueString:
			if !common.IsHexAddress(v.Str) {
				return nil, fmt.Errorf("invalid address %q", v.Str)
			}
			return common.HexToAddress(v.Str), nil
		}
		return nil, fmt.Errorf("want address, have %s", v.Kind)
	case abi.StringTy:
		if v.Kind != types.ValueString {
			return nil, fmt.Errorf("want string, have %s", v.Kind)
		}
		return v.Str, nil
	case abi.BytesTy:
		b, err := bytesOf(v)
		if err != nil {
			return nil, err
		}
		return b, nil
	case abi.FixedBytesTy:
		b, err := bytesOf(v)
		if err != nil {
			return nil, err
		}
		if len(b) > typ.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		if v.Kind != types.ValueArray {
			return nil, fmt.Errorf("want array, have %s", v.Kind)
		}
		var out reflect.Value
		if typ.T == abi.SliceTy {
			out = reflect.MakeSlice(typ.GetType(), len(v.Array), len(v.Array))
		} else {
			if len(v.Array) != typ.Size {
				return nil, fmt.Errorf("want %d items, have %d", typ.Size, len(v.Array))
			}
			out = reflect.New(typ.GetType()).Elem()
		}
		for i, item := range v.Array {
			ev, err := goValue(*typ.Elem, item)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(ev))
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", typ)
}

func bigOf(v types.RuntimeValue) (*big.Int, error) {
	switch v.Kind {
	case types.ValueInt:
		return big.NewInt(v.Int), nil
	case types.ValueUint:
		return new(big.Int).SetUint64(v.Uint), nil
	case types.ValueBool:
		if v.Bool {
			return big.NewInt(1), nil
		}
		return new(big.Int), nil
	case types.ValueBytes:
		if len(v.Bytes) > 32 {
			return nil, fmt.Errorf("%d bytes exceed a word", len(v.Bytes))
		}
		return new(big.Int).SetBytes(v.Bytes), nil
	case types.ValueString:
		n, ok := new(big.Int).SetString(v.Str, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v.Str)
		}
		return n, nil
	}
	return nil, fmt.Errorf("want integer, have %s", v.Kind)
}

func bytesOf(v types.RuntimeValue) ([]byte, error) {
	switch v.Kind {
	case types.ValueBytes:
		return v.Bytes, nil
	case types.ValueString:
		return []byte(v.Str), nil
	}
	return nil, fmt.Errorf("want bytes, have %s", v.Kind)
}

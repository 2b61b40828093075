package abi

import (
	"strings"
	"testing"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	sel := Selector("transfer(address,uint256)")
	require.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, sel)
	require.Equal(t, sel, Selector("transfer(address,uint256)"))
	require.NotEqual(t, sel, Selector("transfer"))
}

func TestFunctionSignature(t *testing.T) {
	fn := Function{
		Name:            "transfer",
		Inputs:          []Argument{{Name: "to", Type: "address"}, {Name: "amount", Type: "uint256"}},
		Outputs:         []Argument{{Type: "bool"}},
		StateMutability: NonPayable,
	}
	require.Equal(t, "transfer(address,uint256)", fn.Signature())
	require.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, fn.Selector())
	require.NoError(t, fn.Validate())
	require.False(t, fn.ReadOnly())

	for _, bad := range []string{"uint257", "int0", "uint12", "int264", "uint257[]"} {
		fn.Inputs[1].Type = bad
		require.ErrorIs(t, fn.Validate(), types.ErrInvalidOperation, bad)
	}
	for _, good := range []string{"uint8", "int256", "uint", "uint64[2]"} {
		fn.Inputs[1].Type = good
		require.NoError(t, fn.Validate(), good)
	}
}

func TestParseSignature(t *testing.T) {
	name, params, ok := ParseSignature("transfer(address,uint256)")
	require.True(t, ok)
	require.Equal(t, "transfer", name)
	require.Equal(t, []string{"address", "uint256"}, params)

	name, params, ok = ParseSignature("totalSupply()")
	require.True(t, ok)
	require.Equal(t, "totalSupply", name)
	require.Empty(t, params)

	_, _, ok = ParseSignature("get")
	require.False(t, ok)

	name, params, ok = ParseSignature("f((uint256,bool),uint8)")
	require.True(t, ok)
	require.Equal(t, "f", name)
	require.Equal(t, []string{"(uint256,bool)", "uint8"}, params)

	_, params, ok = ParseSignature("g(uint8,(address,(bytes,bool))[])")
	require.True(t, ok)
	require.Equal(t, []string{"uint8", "(address,(bytes,bool))[]"}, params)

	_, _, ok = ParseSignature("h((uint8)")
	require.False(t, ok)
}

func TestEncodeValue(t *testing.T) {
	enc, err := EncodeValue(types.UintValue(99))
	require.NoError(t, err)
	require.Equal(t, common.LeftPadBytes([]byte{99}, 32), enc)

	enc, err = EncodeValue(types.IntValue(-1))
	require.NoError(t, err)
	require.Equal(t, common.FromHex(strings.Repeat("ff", 32)), enc)

	enc, err = EncodeValue(types.StringValue("hi"))
	require.NoError(t, err)
	require.Len(t, enc, 64)
	require.Equal(t, byte(2), enc[31])
	require.Equal(t, []byte("hi"), enc[32:34])

	enc, err = EncodeValue(types.ArrayValue(types.BoolValue(true), types.NullValue()))
	require.NoError(t, err)
	require.Len(t, enc, 96)

	_, err = EncodeValue(types.MapValue(nil))
	require.ErrorIs(t, err, types.ErrInvalidOperation)
}

func TestEncodeCallTyped(t *testing.T) {
	to := types.HexToAddress("0x00000000000000000000000000000000000000aa")
	data, err := EncodeCall("transfer(address,uint256)", types.AddressValue(to), types.UintValue(1000))
	require.NoError(t, err)
	require.Len(t, data, 4+64)
	require.Equal(t, common.FromHex("a9059cbb"), data[:4])
	require.Equal(t, byte(0xaa), data[4+31])
	require.Equal(t, common.LeftPadBytes(common.FromHex("03e8"), 32), data[36:])

	_, err = EncodeCall("set(uint8)", types.UintValue(256))
	require.ErrorIs(t, err, types.ErrInvalidOperation)

	data, err = EncodeCall("set(int8)", types.IntValue(-128))
	require.NoError(t, err)
	require.Equal(t, byte(0x80), data[len(data)-1])
}

func TestEncodeCallUntyped(t *testing.T) {
	data, err := EncodeCall("store", types.UintValue(7))
	require.NoError(t, err)
	sel := Selector("store")
	require.Equal(t, sel[:], data[:4])
	require.Equal(t, common.LeftPadBytes([]byte{7}, 32), data[4:])
}

const erc20JSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

func TestLoadJSON(t *testing.T) {
	fns, err := LoadJSON(strings.NewReader(erc20JSON))
	require.NoError(t, err)
	require.Len(t, fns, 2)
	require.Equal(t, "balanceOf(address)", fns[0].Signature())
	require.True(t, fns[0].ReadOnly())
	require.Equal(t, "transfer(address,uint256)", fns[1].Signature())
}

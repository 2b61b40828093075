package vm

import (
	"bytes"
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/holiman/uint256"
)

// ItemKind tags a StackItem.
type ItemKind uint8

const (
	ItemNull ItemKind = iota
	ItemInt
	ItemUint
	ItemBytes
	ItemBool
)

func (k ItemKind) String() string {
	switch k {
	case ItemNull:
		return "null"
	case ItemInt:
		return "int"
	case ItemUint:
		return "uint"
	case ItemBytes:
		return "bytes"
	case ItemBool:
		return "bool"
	}
	return "unknown"
}

// StackItem is the machine-level value held on the operand stack.
type StackItem struct {
	Kind  ItemKind
	Int   int64
	Uint  uint64
	Bytes []byte
	Bool  bool
}

func IntItem(v int64) StackItem { return StackItem{Kind: ItemInt, Int: v} }

func UintItem(v uint64) StackItem { return StackItem{Kind: ItemUint, Uint: v} }

func BytesItem(b []byte) StackItem { return StackItem{Kind: ItemBytes, Bytes: b} }

func BoolItem(v bool) StackItem { return StackItem{Kind: ItemBool, Bool: v} }

func NullItem() StackItem { return StackItem{Kind: ItemNull} }

func (it StackItem) isInteger() bool {
	return it.Kind == ItemInt || it.Kind == ItemUint
}

// bits returns the two's-complement bit pattern of an integer item.
func (it StackItem) bits() uint64 {
	if it.Kind == ItemInt {
		return uint64(it.Int)
	}
	return it.Uint
}

// Word encodes the item as a 32-byte big-endian word. Signed integers are
// sign-extended, byte arrays are left-padded (or keep their last 32 bytes).
func (it StackItem) Word() [32]byte {
	var x uint256.Int
	switch it.Kind {
	case ItemInt:
		if it.Int < 0 {
			x.SetUint64(uint64(^it.Int))
			x.Not(&x)
		} else {
			x.SetUint64(uint64(it.Int))
		}
	case ItemUint:
		x.SetUint64(it.Uint)
	case ItemBytes:
		x.SetBytes(it.Bytes)
	case ItemBool:
		if it.Bool {
			x.SetOne()
		}
	}
	return x.Bytes32()
}

// ItemFromWord decodes a 32-byte word: values that fit in 64 bits become Uint
// items, wider values stay as 32-byte arrays.
func ItemFromWord(w [32]byte) StackItem {
	var x uint256.Int
	x.SetBytes32(w[:])
	if x.IsUint64() {
		return UintItem(x.Uint64())
	}
	out := make([]byte, 32)
	copy(out, w[:])
	return BytesItem(out)
}

// Uint64 interprets the item as an unsigned offset, size or target.
func (it StackItem) Uint64() (uint64, error) {
	switch it.Kind {
	case ItemUint:
		return it.Uint, nil
	case ItemInt:
		if it.Int < 0 {
			return 0, fmt.Errorf("%w: negative operand %d", types.ErrExecution, it.Int)
		}
		return uint64(it.Int), nil
	case ItemBool:
		if it.Bool {
			return 1, nil
		}
		return 0, nil
	case ItemBytes:
		var x uint256.Int
		x.SetBytes(it.Bytes)
		if !x.IsUint64() {
			return 0, fmt.Errorf("%w: operand 0x%x exceeds 64 bits", types.ErrExecution, it.Bytes)
		}
		return x.Uint64(), nil
	}
	return 0, fmt.Errorf("%w: %s operand has no integer value", types.ErrExecution, it.Kind)
}

// Truthy reports whether the item counts as a true condition.
func (it StackItem) Truthy() bool {
	switch it.Kind {
	case ItemInt:
		return it.Int != 0
	case ItemUint:
		return it.Uint != 0
	case ItemBool:
		return it.Bool
	case ItemBytes:
		for _, b := range it.Bytes {
			if b != 0 {
				return true
			}
		}
	}
	return false
}

// Equal compares two items by value. Integers compare mathematically across
// the signed and unsigned kinds; other kinds only equal their own kind.
func (it StackItem) Equal(other StackItem) bool {
	if it.isInteger() && other.isInteger() {
		return compareIntegers(it, other) == 0
	}
	if it.Kind != other.Kind {
		return false
	}
	switch it.Kind {
	case ItemBytes:
		return bytes.Equal(it.Bytes, other.Bytes)
	case ItemBool:
		return it.Bool == other.Bool
	}
	return true
}

func (it StackItem) Copy() StackItem {
	if it.Kind == ItemBytes {
		it.Bytes = append([]byte(nil), it.Bytes...)
	}
	return it
}

func (it StackItem) String() string {
	switch it.Kind {
	case ItemInt:
		return fmt.Sprintf("%d", it.Int)
	case ItemUint:
		return fmt.Sprintf("%du", it.Uint)
	case ItemBytes:
		return fmt.Sprintf("0x%x", it.Bytes)
	case ItemBool:
		return fmt.Sprintf("%t", it.Bool)
	}
	return "null"
}

// compareIntegers returns -1, 0 or 1 comparing the mathematical values of two
// integer items.
func compareIntegers(a, b StackItem) int {
	switch {
	case a.Kind == ItemInt && b.Kind == ItemInt:
		return cmpInt64(a.Int, b.Int)
	case a.Kind == ItemUint && b.Kind == ItemUint:
		return cmpUint64(a.Uint, b.Uint)
	case a.Kind == ItemInt:
		if a.Int < 0 {
			return -1
		}
		return cmpUint64(uint64(a.Int), b.Uint)
	default:
		if b.Int < 0 {
			return 1
		}
		return cmpUint64(a.Uint, uint64(b.Int))
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ToRuntimeValue converts a stack item into the externally visible value.
func ToRuntimeValue(it StackItem) types.RuntimeValue {
	switch it.Kind {
	case ItemInt:
		return types.IntValue(it.Int)
	case ItemUint:
		return types.UintValue(it.Uint)
	case ItemBytes:
		return types.BytesValue(append([]byte(nil), it.Bytes...))
	case ItemBool:
		return types.BoolValue(it.Bool)
	}
	return types.NullValue()
}

// FromRuntimeValue converts a scalar runtime value into a stack item.
// Composite values have no machine representation.
func FromRuntimeValue(v types.RuntimeValue) (StackItem, error) {
	switch v.Kind {
	case types.ValueNull:
		return NullItem(), nil
	case types.ValueInt:
		return IntItem(v.Int), nil
	case types.ValueUint:
		return UintItem(v.Uint), nil
	case types.ValueBytes:
		return BytesItem(append([]byte(nil), v.Bytes...)), nil
	case types.ValueString:
		return BytesItem([]byte(v.Str)), nil
	case types.ValueBool:
		return BoolItem(v.Bool), nil
	case types.ValueAddress:
		return BytesItem(v.Address.Bytes()), nil
	}
	return StackItem{}, fmt.Errorf("%w: %s value has no stack representation", types.ErrInvalidOperation, v.Kind)
}

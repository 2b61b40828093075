package types

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account. Addresses produced by this package are the
// lower-case 0x-prefixed hex form of a 20-byte value; any other string is a
// valid, if unusual, identity.
type Address string

// ZeroAddress is the all-zero 20-byte address.
var ZeroAddress = AddressFromCommon(common.Address{})

// HexToAddress normalises a hex string into an Address.
func HexToAddress(s string) Address {
	return AddressFromCommon(common.HexToAddress(s))
}

// BytesToAddress takes the last 20 bytes of b as an Address.
func BytesToAddress(b []byte) Address {
	return AddressFromCommon(common.BytesToAddress(b))
}

// AddressFromCommon converts a go-ethereum address.
func AddressFromCommon(a common.Address) Address {
	return Address(strings.ToLower(a.Hex()))
}

// Common converts the address to its 20-byte form. Non-hex identities map to
// the zero address.
func (a Address) Common() common.Address {
	return common.HexToAddress(string(a))
}

// Bytes returns the 20-byte form.
func (a Address) Bytes() []byte { return a.Common().Bytes() }

func (a Address) String() string { return string(a) }

// Gas is an amount of gas.
type Gas uint64

// Balance is an account balance.
type Balance uint64

// BlockNumber is the height of the block a call executes in.
type BlockNumber uint64

// Timestamp is a block timestamp in seconds.
type Timestamp uint64

// EncodeUint64 returns the 8-byte big-endian encoding used by state changes.
func EncodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// DecodeUint64 is the inverse of EncodeUint64. Anything but exactly eight
// bytes is rejected.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("malformed u64 encoding: %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// ValueKind tags a RuntimeValue.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueInt
	ValueUint
	ValueBytes
	ValueString
	ValueBool
	ValueAddress
	ValueArray
	ValueMap
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueInt:
		return "int"
	case ValueUint:
		return "uint"
	case ValueBytes:
		return "bytes"
	case ValueString:
		return "string"
	case ValueBool:
		return "bool"
	case ValueAddress:
		return "address"
	case ValueArray:
		return "array"
	case ValueMap:
		return "map"
	}
	return "unknown"
}

// RuntimeValue is the externally visible value used for call arguments and
// decoded results. Only the field matching Kind is meaningful.
type RuntimeValue struct {
	Kind    ValueKind
	Int     int64
	Uint    uint64
	Bytes   []byte
	Str     string
	Bool    bool
	Address Address
	Array   []RuntimeValue
	Map     map[string]RuntimeValue
}

func IntValue(v int64) RuntimeValue       { return RuntimeValue{Kind: ValueInt, Int: v} }
func UintValue(v uint64) RuntimeValue     { return RuntimeValue{Kind: ValueUint, Uint: v} }
func BytesValue(b []byte) RuntimeValue    { return RuntimeValue{Kind: ValueBytes, Bytes: b} }
func StringValue(s string) RuntimeValue   { return RuntimeValue{Kind: ValueString, Str: s} }
func BoolValue(v bool) RuntimeValue       { return RuntimeValue{Kind: ValueBool, Bool: v} }
func AddressValue(a Address) RuntimeValue { return RuntimeValue{Kind: ValueAddress, Address: a} }
func NullValue() RuntimeValue             { return RuntimeValue{Kind: ValueNull} }

func ArrayValue(items ...RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: ValueArray, Array: items}
}

func MapValue(m map[string]RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: ValueMap, Map: m}
}

// MapKeys returns the map keys in sorted order so encoders stay deterministic.
func (v RuntimeValue) MapKeys() []string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v RuntimeValue) String() string {
	switch v.Kind {
	case ValueNull:
		return "null"
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueUint:
		return fmt.Sprintf("%d", v.Uint)
	case ValueBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueAddress:
		return v.Address.String()
	case ValueArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueMap:
		keys := v.MapKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.Map[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

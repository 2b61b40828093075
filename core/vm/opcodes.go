package vm

import "fmt"

// OpCode is a single-byte instruction.
type OpCode byte

// 0x0 range - arithmetic ops.
const (
	STOP OpCode = 0x00
	ADD  OpCode = 0x01
	MUL  OpCode = 0x02
	SUB  OpCode = 0x03
	DIV  OpCode = 0x04
	SDIV OpCode = 0x05
	MOD  OpCode = 0x06
	SMOD OpCode = 0x07
	EXP  OpCode = 0x0a
)

// 0x10 range - comparison and bitwise ops.
const (
	LT     OpCode = 0x10
	GT     OpCode = 0x11
	SLT    OpCode = 0x12
	SGT    OpCode = 0x13
	EQ     OpCode = 0x14
	ISZERO OpCode = 0x15
	AND    OpCode = 0x16
	OR     OpCode = 0x17
	XOR    OpCode = 0x18
	NOT    OpCode = 0x19
	BYTE   OpCode = 0x1a
	SHL    OpCode = 0x1b
	SHR    OpCode = 0x1c
	SAR    OpCode = 0x1d
)

const KECCAK256 OpCode = 0x20

// 0x30 range - environment.
const (
	ADDRESS      OpCode = 0x30
	BALANCE      OpCode = 0x31
	CALLER       OpCode = 0x33
	CALLVALUE    OpCode = 0x34
	CALLDATALOAD OpCode = 0x35
	CALLDATASIZE OpCode = 0x36
	CALLDATACOPY OpCode = 0x37
	CODESIZE     OpCode = 0x38
)

// 0x40 range - block information.
const (
	TIMESTAMP OpCode = 0x42
	NUMBER    OpCode = 0x43
)

// 0x50 range - stack, memory, storage and flow.
const (
	POP      OpCode = 0x50
	MLOAD    OpCode = 0x51
	MSTORE   OpCode = 0x52
	MSTORE8  OpCode = 0x53
	SLOAD    OpCode = 0x54
	SSTORE   OpCode = 0x55
	JUMP     OpCode = 0x56
	JUMPI    OpCode = 0x57
	PC       OpCode = 0x58
	MSIZE    OpCode = 0x59
	GAS      OpCode = 0x5a
	JUMPDEST OpCode = 0x5b
)

// 0x60 range - pushes.
const (
	PUSH1  OpCode = 0x60
	PUSH2  OpCode = 0x61
	PUSH8  OpCode = 0x67
	PUSH32 OpCode = 0x7f
)

// 0x80/0x90 range - dups and swaps.
const (
	DUP1   OpCode = 0x80
	DUP16  OpCode = 0x8f
	SWAP1  OpCode = 0x90
	SWAP16 OpCode = 0x9f
)

// 0xa0 range - logging.
const (
	LOG0 OpCode = 0xa0
	LOG4 OpCode = 0xa4
)

// 0xb0 range - subroutines.
const (
	CALLSUB OpCode = 0xb0
	RETSUB  OpCode = 0xb1
)

// 0xf0 range - exits and value movement.
const (
	RETURN   OpCode = 0xf3
	TRANSFER OpCode = 0xf5
	REVERT   OpCode = 0xfd
	INVALID  OpCode = 0xfe
)

var opCodeToString = map[OpCode]string{
	STOP: "STOP", ADD: "ADD", MUL: "MUL", SUB: "SUB", DIV: "DIV", SDIV: "SDIV",
	MOD: "MOD", SMOD: "SMOD", EXP: "EXP",

	LT: "LT", GT: "GT", SLT: "SLT", SGT: "SGT", EQ: "EQ", ISZERO: "ISZERO",
	AND: "AND", OR: "OR", XOR: "XOR", NOT: "NOT", BYTE: "BYTE",
	SHL: "SHL", SHR: "SHR", SAR: "SAR",

	KECCAK256: "KECCAK256",

	ADDRESS: "ADDRESS", BALANCE: "BALANCE", CALLER: "CALLER", CALLVALUE: "CALLVALUE",
	CALLDATALOAD: "CALLDATALOAD", CALLDATASIZE: "CALLDATASIZE",
	CALLDATACOPY: "CALLDATACOPY", CODESIZE: "CODESIZE",

	TIMESTAMP: "TIMESTAMP", NUMBER: "NUMBER",

	POP: "POP", MLOAD: "MLOAD", MSTORE: "MSTORE", MSTORE8: "MSTORE8",
	SLOAD: "SLOAD", SSTORE: "SSTORE", JUMP: "JUMP", JUMPI: "JUMPI",
	PC: "PC", MSIZE: "MSIZE", GAS: "GAS", JUMPDEST: "JUMPDEST",

	CALLSUB: "CALLSUB", RETSUB: "RETSUB",

	RETURN: "RETURN", TRANSFER: "TRANSFER", REVERT: "REVERT", INVALID: "INVALID",
}

func init() {
	for i := 0; i < 32; i++ {
		opCodeToString[PUSH1+OpCode(i)] = fmt.Sprintf("PUSH%d", i+1)
	}
	for i := 0; i < 16; i++ {
		opCodeToString[DUP1+OpCode(i)] = fmt.Sprintf("DUP%d", i+1)
		opCodeToString[SWAP1+OpCode(i)] = fmt.Sprintf("SWAP%d", i+1)
	}
	for i := 0; i <= 4; i++ {
		opCodeToString[LOG0+OpCode(i)] = fmt.Sprintf("LOG%d", i)
	}
}

// String returns the mnemonic, or a hex placeholder for undefined opcodes.
func (op OpCode) String() string {
	if s, ok := opCodeToString[op]; ok {
		return s
	}
	return fmt.Sprintf("opcode %#x not defined", byte(op))
}

// Defined reports whether op is part of the instruction set.
func (op OpCode) Defined() bool {
	_, ok := opCodeToString[op]
	return ok
}

// IsPush reports whether op is PUSH1..PUSH32.
func (op OpCode) IsPush() bool {
	return op >= PUSH1 && op <= PUSH32
}

// PushSize is the immediate length of a push opcode, zero otherwise.
func (op OpCode) PushSize() int {
	if !op.IsPush() {
		return 0
	}
	return int(op-PUSH1) + 1
}

var stringToOp = make(map[string]OpCode)

func init() {
	for op, s := range opCodeToString {
		stringToOp[s] = op
	}
}

// StringToOp finds the opcode whose mnemonic matches the given string.
func StringToOp(str string) (OpCode, bool) {
	op, ok := stringToOp[str]
	return op, ok
}

package vm

import (
	"strings"
	"testing"
)

// TestOpcodeTable pins the mnemonic, definedness and static cost of every
// byte value.
func TestOpcodeTable(t *testing.T) {
	defined := map[OpCode]uint64{
		STOP: 0, ADD: 5, MUL: 5, SUB: 5, DIV: 5, SDIV: 5, MOD: 5, SMOD: 5, EXP: 5,
		LT: 3, GT: 3, SLT: 3, SGT: 3, EQ: 3, ISZERO: 3, AND: 3, OR: 3, XOR: 3,
		NOT: 3, BYTE: 3, SHL: 3, SHR: 3, SAR: 3,
		KECCAK256: 30,
		ADDRESS: 2, BALANCE: 2, CALLER: 2, CALLVALUE: 2, CALLDATALOAD: 2,
		CALLDATASIZE: 2, CALLDATACOPY: 2, CODESIZE: 2,
		TIMESTAMP: 2, NUMBER: 2,
		POP: 2, MLOAD: 3, MSTORE: 3, MSTORE8: 3, SLOAD: 2, SSTORE: 2,
		JUMP: 8, JUMPI: 8, PC: 2, MSIZE: 2, GAS: 2, JUMPDEST: 1,
		CALLSUB: 5, RETSUB: 5,
		RETURN: 0, TRANSFER: 2, REVERT: 0, INVALID: 1,
	}
	for op := PUSH1; op <= PUSH32; op++ {
		defined[op] = 3
	}
	for op := DUP1; op <= SWAP16; op++ {
		defined[op] = 3
	}
	for op := LOG0; op <= LOG4; op++ {
		defined[op] = 8
	}

	for i := 0; i < 256; i++ {
		op := OpCode(i)
		gas, ok := defined[op]
		if op.Defined() != ok {
			t.Fatalf("opcode %#x: defined = %v, want %v", i, op.Defined(), ok)
		}
		if !ok {
			gas = GasUnknown
			if !strings.Contains(op.String(), "not defined") {
				t.Fatalf("opcode %#x: unexpected mnemonic %q", i, op.String())
			}
			if !strictInstructionSet[op].undefined || !permissiveInstructionSet[op].undefined {
				t.Fatalf("opcode %#x: expected undefined table entry", i)
			}
		} else {
			back, found := StringToOp(op.String())
			if !found || back != op {
				t.Fatalf("opcode %#x: mnemonic %q does not round-trip", i, op.String())
			}
		}
		if got := ConstantGas(op); got != gas {
			t.Fatalf("opcode %#x (%s): gas = %d, want %d", i, op, got, gas)
		}
		if strictInstructionSet[op].execute == nil || permissiveInstructionSet[op].execute == nil {
			t.Fatalf("opcode %#x: missing handler", i)
		}
	}
}

func TestPushSize(t *testing.T) {
	if PUSH1.PushSize() != 1 || PUSH32.PushSize() != 32 || ADD.PushSize() != 0 {
		t.Fatalf("unexpected push sizes")
	}
	if OpCode(0x6a).String() != "PUSH11" || OpCode(0x9f).String() != "SWAP16" || OpCode(0xa2).String() != "LOG2" {
		t.Fatalf("generated mnemonics are wrong")
	}
}

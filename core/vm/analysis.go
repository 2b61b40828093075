package vm

import "github.com/willf/bitset"

// jumpdestAnalysis marks every JUMPDEST that is not part of push data. An
// unset bit means the byte is not a valid jump destination.
func jumpdestAnalysis(code []byte) *bitset.BitSet {
	bits := bitset.New(uint(len(code)))
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			bits.Set(uint(pc))
		}
		pc += op.PushSize() + 1
	}
	return bits
}

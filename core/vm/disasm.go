package vm

import (
	"fmt"
	"strings"
)

// Instruction is one decoded entry of a disassembly listing.
type Instruction struct {
	IP        uint32
	Op        OpCode
	Immediate []byte
}

func (in Instruction) String() string {
	if len(in.Immediate) > 0 {
		return fmt.Sprintf("%05d: %s 0x%x", in.IP, in.Op, in.Immediate)
	}
	return fmt.Sprintf("%05d: %s", in.IP, in.Op)
}

// Disassemble decodes code into instructions. Push data running past the end
// of code is returned truncated.
func Disassemble(code []byte) []Instruction {
	var out []Instruction
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		in := Instruction{IP: uint32(pc), Op: op}
		if n := op.PushSize(); n > 0 {
			end := min(pc+1+n, len(code))
			in.Immediate = code[pc+1 : end]
		}
		out = append(out, in)
		pc += 1 + op.PushSize()
	}
	return out
}

// DisassembleString renders a listing, one instruction per line.
func DisassembleString(code []byte) string {
	var sb strings.Builder
	for _, in := range Disassemble(code) {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

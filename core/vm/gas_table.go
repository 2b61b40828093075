package vm

// Static per-instruction costs. Opcodes are priced by family; anything the
// table does not know costs GasUnknown so a loop of unknown opcodes still
// exhausts gas.
const (
	GasZero        uint64 = 0
	GasUnknown     uint64 = 1
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasKeccak      uint64 = 30
)

func constantGas(op OpCode) uint64 {
	switch {
	case op == STOP, op == RETURN, op == REVERT:
		return GasZero
	case op >= ADD && op <= EXP:
		if !op.Defined() {
			return GasUnknown
		}
		return GasFastStep
	case op >= LT && op <= SAR:
		return GasFastestStep
	case op == KECCAK256:
		return GasKeccak
	case op >= ADDRESS && op <= CODESIZE, op == TIMESTAMP, op == NUMBER:
		if !op.Defined() {
			return GasUnknown
		}
		return GasQuickStep
	case op == POP, op == PC, op == MSIZE, op == GAS, op == SLOAD, op == SSTORE:
		return GasQuickStep
	case op == MLOAD, op == MSTORE, op == MSTORE8:
		return GasFastestStep
	case op == JUMP, op == JUMPI:
		return GasMidStep
	case op == JUMPDEST:
		return GasUnknown
	case op.IsPush(), op >= DUP1 && op <= SWAP16:
		return GasFastestStep
	case op >= LOG0 && op <= LOG4:
		return GasMidStep
	case op == CALLSUB, op == RETSUB:
		return GasFastStep
	case op == TRANSFER:
		return GasQuickStep
	}
	return GasUnknown
}

package vm

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
)

// executionFunc runs one instruction at pc and returns the next pc.
type executionFunc func(pc uint32, c *ExecutionContext) (uint32, error)

type operation struct {
	execute     executionFunc
	constantGas uint64
	minStack    int
	undefined   bool
}

// JumpTable maps every byte to its operation.
type JumpTable [256]*operation

var (
	strictInstructionSet     = newInstructionSet(true)
	permissiveInstructionSet = newInstructionSet(false)
)

// instructionSet selects the table for the opcode policy. Strict tables fail
// on undefined opcodes, permissive tables skip over them.
func instructionSet(strict bool) *JumpTable {
	if strict {
		return strictInstructionSet
	}
	return permissiveInstructionSet
}

func newInstructionSet(strict bool) *JumpTable {
	tbl := &JumpTable{
		STOP: {execute: opStop},
		ADD:  {execute: opAdd, minStack: 2},
		MUL:  {execute: opMul, minStack: 2},
		SUB:  {execute: opSub, minStack: 2},
		DIV:  {execute: opDiv, minStack: 2},
		SDIV: {execute: opSdiv, minStack: 2},
		MOD:  {execute: opMod, minStack: 2},
		SMOD: {execute: opSmod, minStack: 2},
		EXP:  {execute: opExp, minStack: 2},

		LT:     {execute: opLt, minStack: 2},
		GT:     {execute: opGt, minStack: 2},
		SLT:    {execute: opSlt, minStack: 2},
		SGT:    {execute: opSgt, minStack: 2},
		EQ:     {execute: opEq, minStack: 2},
		ISZERO: {execute: opIszero, minStack: 1},
		AND:    {execute: opAnd, minStack: 2},
		OR:     {execute: opOr, minStack: 2},
		XOR:    {execute: opXor, minStack: 2},
		NOT:    {execute: opNot, minStack: 1},
		BYTE:   {execute: opByte, minStack: 2},
		SHL:    {execute: opSHL, minStack: 2},
		SHR:    {execute: opSHR, minStack: 2},
		SAR:    {execute: opSAR, minStack: 2},

		KECCAK256: {execute: opKeccak256, minStack: 2},

		ADDRESS:      {execute: opAddress},
		BALANCE:      {execute: opBalance, minStack: 1},
		CALLER:       {execute: opCaller},
		CALLVALUE:    {execute: opCallValue},
		CALLDATALOAD: {execute: opCallDataLoad, minStack: 1},
		CALLDATASIZE: {execute: opCallDataSize},
		CALLDATACOPY: {execute: opCallDataCopy, minStack: 3},
		CODESIZE:     {execute: opCodeSize},

		TIMESTAMP: {execute: opTimestamp},
		NUMBER:    {execute: opNumber},

		POP:      {execute: opPop, minStack: 1},
		MLOAD:    {execute: opMload, minStack: 1},
		MSTORE:   {execute: opMstore, minStack: 2},
		MSTORE8:  {execute: opMstore8, minStack: 2},
		SLOAD:    {execute: opSload, minStack: 1},
		SSTORE:   {execute: opSstore, minStack: 2},
		JUMP:     {execute: opJump, minStack: 1},
		JUMPI:    {execute: opJumpi, minStack: 2},
		PC:       {execute: opPc},
		MSIZE:    {execute: opMsize},
		GAS:      {execute: opGas},
		JUMPDEST: {execute: opJumpdest},

		CALLSUB: {execute: opCallSub, minStack: 1},
		RETSUB:  {execute: opRetSub},

		RETURN:   {execute: opReturn, minStack: 2},
		TRANSFER: {execute: opTransfer, minStack: 2},
		REVERT:   {execute: opRevert, minStack: 2},
		INVALID:  {execute: opInvalid},
	}
	for i := 0; i < 32; i++ {
		tbl[PUSH1+OpCode(i)] = &operation{execute: makePush(i + 1)}
	}
	for i := 0; i < 16; i++ {
		tbl[DUP1+OpCode(i)] = &operation{execute: makeDup(i + 1), minStack: i + 1}
		tbl[SWAP1+OpCode(i)] = &operation{execute: makeSwap(i + 1), minStack: i + 2}
	}
	for i := 0; i <= 4; i++ {
		tbl[LOG0+OpCode(i)] = &operation{execute: makeLog(i), minStack: i + 2}
	}

	for i, entry := range tbl {
		op := OpCode(i)
		if entry == nil {
			entry = &operation{undefined: true, execute: opUnknown}
			if strict {
				entry.execute = opUndefined
			}
			tbl[i] = entry
		}
		entry.constantGas = constantGas(op)
	}
	return tbl
}

func opUndefined(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc, fmt.Errorf("%w: undefined opcode %#x at ip %d", types.ErrInvalidOperation, c.code[pc], pc)
}

// opUnknown skips an undefined opcode.
func opUnknown(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, nil
}

// ConstantGas returns the static cost charged before executing op.
func ConstantGas(op OpCode) uint64 {
	return strictInstructionSet[op].constantGas
}

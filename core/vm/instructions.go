package vm

import (
	"fmt"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Operands are popped top first: for SUB the top item is the minuend, for
// JUMPI the top item is the destination, matching EVM operand order.

func errOperand(op OpCode, it StackItem) error {
	return fmt.Errorf("%w: %s operand not allowed in %s", types.ErrExecution, it.Kind, op)
}

// popIntegers pops two integer operands.
func (c *ExecutionContext) popIntegers(op OpCode) (a, b StackItem, err error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return a, b, err
	}
	for _, it := range items {
		if !it.isInteger() {
			return a, b, errOperand(op, it)
		}
	}
	return items[0], items[1], nil
}

// intResult keeps unsigned results unsigned and widens anything mixed to
// signed.
func intResult(a, b StackItem, bits uint64) StackItem {
	if a.Kind == ItemUint && b.Kind == ItemUint {
		return UintItem(bits)
	}
	return IntItem(int64(bits))
}

func (c *ExecutionContext) arith(pc uint32, op OpCode, fn func(a, b StackItem) (StackItem, error)) (uint32, error) {
	a, b, err := c.popIntegers(op)
	if err != nil {
		return pc, err
	}
	res, err := fn(a, b)
	if err != nil {
		return pc, err
	}
	return pc + 1, c.stack.push(res)
}

func opAdd(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, ADD, func(a, b StackItem) (StackItem, error) {
		return intResult(a, b, a.bits()+b.bits()), nil
	})
}

func opMul(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, MUL, func(a, b StackItem) (StackItem, error) {
		return intResult(a, b, a.bits()*b.bits()), nil
	})
}

func opSub(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, SUB, func(a, b StackItem) (StackItem, error) {
		return intResult(a, b, a.bits()-b.bits()), nil
	})
}

func opDiv(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, DIV, func(a, b StackItem) (StackItem, error) {
		if b.bits() == 0 {
			return intResult(a, b, 0), nil
		}
		if a.Kind == ItemUint && b.Kind == ItemUint {
			return UintItem(a.Uint / b.Uint), nil
		}
		return IntItem(int64(a.bits()) / int64(b.bits())), nil
	})
}

func opSdiv(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, SDIV, func(a, b StackItem) (StackItem, error) {
		if b.bits() == 0 {
			return IntItem(0), nil
		}
		return IntItem(int64(a.bits()) / int64(b.bits())), nil
	})
}

func opMod(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, MOD, func(a, b StackItem) (StackItem, error) {
		if b.bits() == 0 {
			return intResult(a, b, 0), nil
		}
		if a.Kind == ItemUint && b.Kind == ItemUint {
			return UintItem(a.Uint % b.Uint), nil
		}
		return IntItem(int64(a.bits()) % int64(b.bits())), nil
	})
}

func opSmod(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, SMOD, func(a, b StackItem) (StackItem, error) {
		if b.bits() == 0 {
			return IntItem(0), nil
		}
		return IntItem(int64(a.bits()) % int64(b.bits())), nil
	})
}

func opExp(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.arith(pc, EXP, func(base, exponent StackItem) (StackItem, error) {
		if exponent.Kind == ItemInt && exponent.Int < 0 {
			return StackItem{}, fmt.Errorf("%w: negative exponent %d", types.ErrExecution, exponent.Int)
		}
		result, b, e := uint64(1), base.bits(), exponent.bits()
		for e > 0 {
			if e&1 == 1 {
				result *= b
			}
			b *= b
			e >>= 1
		}
		return intResult(base, exponent, result), nil
	})
}

// word converts an operand of a bitwise or comparison instruction to a
// 256-bit integer.
func word(op OpCode, it StackItem) (*uint256.Int, error) {
	if it.Kind == ItemNull {
		return nil, errOperand(op, it)
	}
	w := it.Word()
	return new(uint256.Int).SetBytes32(w[:]), nil
}

func (c *ExecutionContext) words(op OpCode) (a, b *uint256.Int, err error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return nil, nil, err
	}
	if a, err = word(op, items[0]); err != nil {
		return nil, nil, err
	}
	if b, err = word(op, items[1]); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func pushWord(c *ExecutionContext, pc uint32, x *uint256.Int) (uint32, error) {
	return pc + 1, c.stack.push(ItemFromWord(x.Bytes32()))
}

func (c *ExecutionContext) compare(pc uint32, op OpCode, signed bool, want int) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	a, b := items[0], items[1]
	var cmp int
	switch {
	case a.isInteger() && b.isInteger() && signed:
		cmp = cmpInt64(int64(a.bits()), int64(b.bits()))
	case a.isInteger() && b.isInteger():
		cmp = compareIntegers(a, b)
	default:
		x, err := word(op, a)
		if err != nil {
			return pc, err
		}
		y, err := word(op, b)
		if err != nil {
			return pc, err
		}
		switch {
		case signed && x.Slt(y), !signed && x.Lt(y):
			cmp = -1
		case signed && x.Sgt(y), !signed && x.Gt(y):
			cmp = 1
		}
	}
	return pc + 1, c.stack.push(BoolItem(cmp == want))
}

func opLt(pc uint32, c *ExecutionContext) (uint32, error)  { return c.compare(pc, LT, false, -1) }
func opGt(pc uint32, c *ExecutionContext) (uint32, error)  { return c.compare(pc, GT, false, 1) }
func opSlt(pc uint32, c *ExecutionContext) (uint32, error) { return c.compare(pc, SLT, true, -1) }
func opSgt(pc uint32, c *ExecutionContext) (uint32, error) { return c.compare(pc, SGT, true, 1) }

func opEq(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	a, b := items[0], items[1]
	var eq bool
	switch {
	case a.Kind == ItemNull || b.Kind == ItemNull:
		eq = a.Kind == b.Kind
	case a.isInteger() && b.isInteger(), a.Kind == b.Kind:
		eq = a.Equal(b)
	default:
		eq = a.Word() == b.Word()
	}
	return pc + 1, c.stack.push(BoolItem(eq))
}

func opIszero(pc uint32, c *ExecutionContext) (uint32, error) {
	x, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	return pc + 1, c.stack.push(BoolItem(!x.Truthy()))
}

// bitwise applies fn to 64-bit patterns when both operands are integers and
// to full words otherwise.
func (c *ExecutionContext) bitwise(pc uint32, op OpCode, fn func(a, b uint64) uint64, wfn func(z, a, b *uint256.Int) *uint256.Int) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	a, b := items[0], items[1]
	if a.isInteger() && b.isInteger() {
		return pc + 1, c.stack.push(intResult(a, b, fn(a.bits(), b.bits())))
	}
	x, err := word(op, a)
	if err != nil {
		return pc, err
	}
	y, err := word(op, b)
	if err != nil {
		return pc, err
	}
	return pushWord(c, pc, wfn(x, x, y))
}

func opAnd(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.bitwise(pc, AND, func(a, b uint64) uint64 { return a & b }, (*uint256.Int).And)
}

func opOr(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.bitwise(pc, OR, func(a, b uint64) uint64 { return a | b }, (*uint256.Int).Or)
}

func opXor(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.bitwise(pc, XOR, func(a, b uint64) uint64 { return a ^ b }, (*uint256.Int).Xor)
}

func opNot(pc uint32, c *ExecutionContext) (uint32, error) {
	x, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	switch x.Kind {
	case ItemUint:
		return pc + 1, c.stack.push(UintItem(^x.Uint))
	case ItemInt:
		return pc + 1, c.stack.push(IntItem(^x.Int))
	}
	w, err := word(NOT, x)
	if err != nil {
		return pc, err
	}
	return pushWord(c, pc, w.Not(w))
}

func opByte(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	th, err := items[0].Uint64()
	if err != nil {
		return pc, err
	}
	if items[1].Kind == ItemNull {
		return pc, errOperand(BYTE, items[1])
	}
	var b uint64
	if th < 32 {
		w := items[1].Word()
		b = uint64(w[th])
	}
	return pc + 1, c.stack.push(UintItem(b))
}

// shift pops the shift amount (top) and the value.
func (c *ExecutionContext) shift(pc uint32, op OpCode, fn func(v StackItem, n uint64) StackItem, wfn func(v *uint256.Int, n uint) *uint256.Int) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	n, err := items[0].Uint64()
	if err != nil {
		return pc, err
	}
	v := items[1]
	if v.isInteger() {
		return pc + 1, c.stack.push(fn(v, n))
	}
	w, err := word(op, v)
	if err != nil {
		return pc, err
	}
	if n > 256 {
		n = 256
	}
	return pushWord(c, pc, wfn(w, uint(n)))
}

func opSHL(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.shift(pc, SHL, func(v StackItem, n uint64) StackItem {
		var bits uint64
		if n < 64 {
			bits = v.bits() << n
		}
		return intResult(v, v, bits)
	}, func(v *uint256.Int, n uint) *uint256.Int { return v.Lsh(v, n) })
}

func opSHR(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.shift(pc, SHR, func(v StackItem, n uint64) StackItem {
		var bits uint64
		if n < 64 {
			bits = v.bits() >> n
		}
		return intResult(v, v, bits)
	}, func(v *uint256.Int, n uint) *uint256.Int { return v.Rsh(v, n) })
}

func opSAR(pc uint32, c *ExecutionContext) (uint32, error) {
	return c.shift(pc, SAR, func(v StackItem, n uint64) StackItem {
		if n > 63 {
			n = 63
		}
		return IntItem(int64(v.bits()) >> n)
	}, func(v *uint256.Int, n uint) *uint256.Int { return v.SRsh(v, n) })
}

func opKeccak256(pc uint32, c *ExecutionContext) (uint32, error) {
	offset, size, err := c.popRange()
	if err != nil {
		return pc, err
	}
	data, err := c.memory.GetCopy(offset, size)
	if err != nil {
		return pc, err
	}
	if c.host != nil {
		if err := c.host.UseGas(GasOpKeccak, (size+31)/32); err != nil {
			return pc, err
		}
	}
	return pc + 1, c.stack.push(ItemFromWord(crypto.Keccak256Hash(data)))
}

// popRange pops an (offset, size) pair, offset on top.
func (c *ExecutionContext) popRange() (uint64, uint64, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return 0, 0, err
	}
	offset, err := items[0].Uint64()
	if err != nil {
		return 0, 0, err
	}
	size, err := items[1].Uint64()
	if err != nil {
		return 0, 0, err
	}
	return offset, size, nil
}

func addressItem(a types.Address) StackItem {
	return ItemFromWord(common.BytesToHash(a.Bytes()))
}

func itemAddress(it StackItem) types.Address {
	w := it.Word()
	return types.BytesToAddress(w[12:])
}

func opAddress(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(addressItem(c.meta.Address))
}

func opCaller(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(addressItem(c.meta.Caller))
}

func opCallValue(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(c.meta.Value)))
}

func opBalance(pc uint32, c *ExecutionContext) (uint32, error) {
	h, err := c.requireHost(BALANCE)
	if err != nil {
		return pc, err
	}
	it, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	bal, err := h.Balance(itemAddress(it))
	if err != nil {
		return pc, err
	}
	return pc + 1, c.stack.push(UintItem(uint64(bal)))
}

func opCallDataLoad(pc uint32, c *ExecutionContext) (uint32, error) {
	it, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	var w common.Hash
	if offset, err := it.Uint64(); err == nil && offset < uint64(len(c.input)) {
		copy(w[:], c.input[offset:])
	}
	return pc + 1, c.stack.push(ItemFromWord(w))
}

func opCallDataSize(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(len(c.input))))
}

func opCallDataCopy(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(3)
	if err != nil {
		return pc, err
	}
	var args [3]uint64
	for i, it := range items {
		if args[i], err = it.Uint64(); err != nil {
			return pc, err
		}
	}
	memOffset, dataOffset, size := args[0], args[1], args[2]
	if size > MemoryLimit {
		return pc, fmt.Errorf("%w: calldata copy of %d bytes exceeds memory limit", types.ErrExecution, size)
	}
	buf := make([]byte, size)
	if dataOffset < uint64(len(c.input)) {
		copy(buf, c.input[dataOffset:])
	}
	return pc + 1, c.memory.Set(memOffset, buf)
}

func opCodeSize(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(len(c.code))))
}

func opTimestamp(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(c.meta.Timestamp)))
}

func opNumber(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(c.meta.Block)))
}

func opPop(pc uint32, c *ExecutionContext) (uint32, error) {
	_, err := c.stack.pop()
	return pc + 1, err
}

func opMload(pc uint32, c *ExecutionContext) (uint32, error) {
	it, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	offset, err := it.Uint64()
	if err != nil {
		return pc, err
	}
	data, err := c.memory.GetCopy(offset, 32)
	if err != nil {
		return pc, err
	}
	return pc + 1, c.stack.push(ItemFromWord(common.BytesToHash(data)))
}

func opMstore(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	offset, err := items[0].Uint64()
	if err != nil {
		return pc, err
	}
	w := items[1].Word()
	return pc + 1, c.memory.Set(offset, w[:])
}

func opMstore8(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	offset, err := items[0].Uint64()
	if err != nil {
		return pc, err
	}
	w := items[1].Word()
	return pc + 1, c.memory.Set(offset, w[31:])
}

func opSload(pc uint32, c *ExecutionContext) (uint32, error) {
	h, err := c.requireHost(SLOAD)
	if err != nil {
		return pc, err
	}
	key, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	val, err := h.GetStorage(key.Word())
	if err != nil {
		return pc, err
	}
	return pc + 1, c.stack.push(ItemFromWord(val))
}

func opSstore(pc uint32, c *ExecutionContext) (uint32, error) {
	h, err := c.requireHost(SSTORE)
	if err != nil {
		return pc, err
	}
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	return pc + 1, h.SetStorage(items[0].Word(), items[1].Word())
}

// jumpTarget validates that the item names a JUMPDEST outside push data.
func (c *ExecutionContext) jumpTarget(it StackItem) (uint32, error) {
	dest, err := it.Uint64()
	if err != nil {
		return 0, err
	}
	if dest >= uint64(len(c.code)) || !c.jumpdests.Test(uint(dest)) {
		return 0, fmt.Errorf("%w: invalid jump destination %d", types.ErrExecution, dest)
	}
	return uint32(dest), nil
}

func opJump(pc uint32, c *ExecutionContext) (uint32, error) {
	it, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	return c.jumpTarget(it)
}

func opJumpi(pc uint32, c *ExecutionContext) (uint32, error) {
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	if cond := items[1]; cond.Kind != ItemBool && !cond.isInteger() {
		return pc, errOperand(JUMPI, cond)
	}
	if !items[1].Truthy() {
		return pc + 1, nil
	}
	return c.jumpTarget(items[0])
}

func opPc(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(pc)))
}

func opMsize(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, c.stack.push(UintItem(uint64(c.memory.Len())))
}

func opGas(pc uint32, c *ExecutionContext) (uint32, error) {
	var left uint64
	if c.host != nil {
		left = c.host.GasLeft()
	}
	return pc + 1, c.stack.push(UintItem(left))
}

func opJumpdest(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc + 1, nil
}

// makePush reads size immediate bytes, zero-padding past the end of code.
func makePush(size int) executionFunc {
	return func(pc uint32, c *ExecutionContext) (uint32, error) {
		data := make([]byte, size)
		start := uint64(pc) + 1
		if start < uint64(len(c.code)) {
			copy(data, c.code[start:])
		}
		var item StackItem
		if size <= 8 {
			var v uint64
			for _, b := range data {
				v = v<<8 | uint64(b)
			}
			item = UintItem(v)
		} else {
			item = BytesItem(data)
		}
		next := start + uint64(size)
		if next > uint64(len(c.code)) {
			next = uint64(len(c.code))
		}
		return uint32(next), c.stack.push(item)
	}
}

func makeDup(n int) executionFunc {
	return func(pc uint32, c *ExecutionContext) (uint32, error) {
		return pc + 1, c.stack.dup(n)
	}
}

func makeSwap(n int) executionFunc {
	return func(pc uint32, c *ExecutionContext) (uint32, error) {
		return pc + 1, c.stack.swap(n)
	}
}

func makeLog(n int) executionFunc {
	return func(pc uint32, c *ExecutionContext) (uint32, error) {
		h, err := c.requireHost(LOG0 + OpCode(n))
		if err != nil {
			return pc, err
		}
		offset, size, err := c.popRange()
		if err != nil {
			return pc, err
		}
		items, err := c.stack.popN(n)
		if err != nil {
			return pc, err
		}
		topics := make([]common.Hash, n)
		for i, it := range items {
			topics[i] = it.Word()
		}
		data, err := c.memory.GetCopy(offset, size)
		if err != nil {
			return pc, err
		}
		return pc + 1, h.EmitLog(topics, data)
	}
}

func opCallSub(pc uint32, c *ExecutionContext) (uint32, error) {
	it, err := c.stack.pop()
	if err != nil {
		return pc, err
	}
	dest, err := c.jumpTarget(it)
	if err != nil {
		return pc, err
	}
	if err := c.pushFrame(pc+1, dest, ""); err != nil {
		return pc, err
	}
	return dest, nil
}

func opRetSub(pc uint32, c *ExecutionContext) (uint32, error) {
	frame, err := c.popFrame()
	if err != nil {
		return pc, err
	}
	return frame.ReturnIP, nil
}

func (c *ExecutionContext) halt(pc uint32, reverted bool) (uint32, error) {
	offset, size, err := c.popRange()
	if err != nil {
		return pc, err
	}
	data, err := c.memory.GetCopy(offset, size)
	if err != nil {
		return pc, err
	}
	c.returnData = data
	c.reverted = reverted
	return uint32(len(c.code)), nil
}

func opStop(pc uint32, c *ExecutionContext) (uint32, error) {
	return uint32(len(c.code)), nil
}

func opReturn(pc uint32, c *ExecutionContext) (uint32, error) { return c.halt(pc, false) }
func opRevert(pc uint32, c *ExecutionContext) (uint32, error) { return c.halt(pc, true) }

func opTransfer(pc uint32, c *ExecutionContext) (uint32, error) {
	h, err := c.requireHost(TRANSFER)
	if err != nil {
		return pc, err
	}
	items, err := c.stack.popN(2)
	if err != nil {
		return pc, err
	}
	amount, err := items[1].Uint64()
	if err != nil {
		return pc, err
	}
	return pc + 1, h.Transfer(itemAddress(items[0]), types.Balance(amount))
}

func opInvalid(pc uint32, c *ExecutionContext) (uint32, error) {
	return pc, fmt.Errorf("%w: INVALID at ip %d", types.ErrInvalidOperation, pc)
}

func (c *ExecutionContext) requireHost(op OpCode) (Host, error) {
	if c.host == nil {
		return nil, fmt.Errorf("%w: %s requires a host", types.ErrInvalidOperation, op)
	}
	return c.host, nil
}

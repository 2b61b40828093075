package vm

import (
	"maps"

	"github.com/clydemeng/yulvm/core/types"
)

// DefaultBaseGas is the flat overhead charged by every Reset.
const DefaultBaseGas uint64 = 21

// Named costs for operations that are not single instructions.
const (
	GasOpSload       = "sload"
	GasOpSstore      = "sstore"
	GasOpBalance     = "balance"
	GasOpLog         = "log"
	GasOpLogTopic    = "logtopic"
	GasOpLogData     = "logdata"
	GasOpTransfer    = "transfer"
	GasOpKeccak      = "keccak"
	GasOpCreate      = "create"
	GasOpCodeDeposit = "codedeposit"
)

// DefaultGasCosts returns a fresh copy of the named-operation cost table.
func DefaultGasCosts() map[string]uint64 {
	return map[string]uint64{
		GasOpSload:       200,
		GasOpSstore:      5000,
		GasOpBalance:     100,
		GasOpLog:         375,
		GasOpLogTopic:    375,
		GasOpLogData:     8,
		GasOpTransfer:    2300,
		GasOpKeccak:      6,
		GasOpCreate:      32000,
		GasOpCodeDeposit: 200,
	}
}

// GasTracker is a pure cost-accounting unit. It knows nothing about the
// stack machine; callers charge it by name.
type GasTracker struct {
	limit    uint64
	used     uint64
	baseCost uint64
	costs    map[string]uint64
}

// NewGasTracker builds a tracker with the given base cost. Entries in costs
// override the defaults.
func NewGasTracker(baseCost uint64, costs map[string]uint64) *GasTracker {
	table := DefaultGasCosts()
	maps.Copy(table, costs)
	return &GasTracker{baseCost: baseCost, costs: table}
}

// Reset sets a new limit and immediately charges the base cost.
func (g *GasTracker) Reset(limit uint64) {
	g.limit = limit
	g.used = g.baseCost
}

// Cost returns the named cost, defaulting to 1 for unknown names.
func (g *GasTracker) Cost(name string) uint64 {
	if c, ok := g.costs[name]; ok {
		return c
	}
	return 1
}

// ConsumeGas charges the named operation, or amount when non-nil. A charge
// that would exceed the limit is rejected without being applied.
func (g *GasTracker) ConsumeGas(name string, amount *uint64) error {
	cost := g.Cost(name)
	if amount != nil {
		cost = *amount
	}
	total := g.used + cost
	if total < g.used || total > g.limit {
		return &types.OutOfGasError{Used: g.used, Limit: g.limit}
	}
	g.used = total
	return nil
}

// Exhaust marks all gas as consumed. Used when execution aborts on gas.
func (g *GasTracker) Exhaust() {
	if g.used < g.limit {
		g.used = g.limit
	}
}

// Remaining is the gas left before the limit.
func (g *GasTracker) Remaining() uint64 {
	if g.used >= g.limit {
		return 0
	}
	return g.limit - g.used
}

// Used is the gas consumed so far, base cost included.
func (g *GasTracker) Used() uint64 { return g.used }

// Limit is the gas limit set by the last Reset.
func (g *GasTracker) Limit() uint64 { return g.limit }

// BaseCost is charged by every Reset before any instruction runs.
func (g *GasTracker) BaseCost() uint64 { return g.baseCost }

// OutOfGas reports whether the limit has been reached.
func (g *GasTracker) OutOfGas() bool { return g.used >= g.limit }

package storage

import "github.com/ethereum/go-ethereum/metrics"

var (
	readCounter      = metrics.NewRegisteredCounter("storage/reads", nil)
	writeCounter     = metrics.NewRegisteredCounter("storage/writes", nil)
	cacheHitCounter  = metrics.NewRegisteredCounter("storage/cache/hits", nil)
	cacheMissCounter = metrics.NewRegisteredCounter("storage/cache/misses", nil)
)

package bridge

import "github.com/ethereum/go-ethereum/metrics"

var (
	instructionCounter  = metrics.NewRegisteredCounter("bridge/instructions", nil)
	failureCounter      = metrics.NewRegisteredCounter("bridge/failures", nil)
	overlayMissCounter  = metrics.NewRegisteredCounter("bridge/overlay/misses", nil)
	flushedSlotsCounter = metrics.NewRegisteredCounter("bridge/overlay/flushed", nil)
)

package queue

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

// metrics
var (
	// Queue depth
	QueuePendingGauge = metrics.NewRegisteredGauge("queue/pending", nil)
	QueueDelayedGauge = metrics.NewRegisteredGauge("queue/delayed", nil)

	// Execution counters
	QueueExecuteSuccessMeter = metrics.NewRegisteredMeter("queue/execute/success", nil)
	QueueExecuteFailureMeter = metrics.NewRegisteredMeter("queue/execute/failure", nil)

	// Execution processing time
	QueueExecuteTimer = metrics.NewRegisteredTimer("queue/execute", nil)
)

// Pending element counter
func MetricsPendingInc(count int) {
	QueuePendingGauge.Inc(int64(count))
}

func MetricsPendingDec(count int) {
	QueuePendingGauge.Dec(int64(count))
}

// Delayed element counter
func MetricsDelayedInc(count int) {
	QueueDelayedGauge.Inc(int64(count))
}

func MetricsDelayedDec(count int) {
	QueueDelayedGauge.Dec(int64(count))
}

// Execution outcome counters
func MetricsExecuteSuccess() {
	QueueExecuteSuccessMeter.Mark(1)
}

func MetricsExecuteFailure() {
	QueueExecuteFailureMeter.Mark(1)
}

// Execution timing
func MetricsExecuteCost(start time.Time) {
	QueueExecuteTimer.Update(time.Since(start))
}

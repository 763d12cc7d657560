package workers

import (
	"context"
	"time"

	"vulcan/internal/services/monitor"
)

// MonitorWorker runs the position monitor sweep on a fixed schedule.
type MonitorWorker struct {
	*BaseWorker
	monitor *monitor.Service
}

// NewMonitorWorker creates a new monitor worker
func NewMonitorWorker(svc *monitor.Service, interval time.Duration, enabled bool) *MonitorWorker {
	return &MonitorWorker{
		BaseWorker: NewBaseWorker("position_monitor", interval, enabled),
		monitor:    svc,
	}
}

// Run executes one monitor sweep
func (w *MonitorWorker) Run(ctx context.Context) error {
	start := time.Now()

	if err := w.monitor.Tick(ctx); err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	w.RecordRun(time.Since(start))
	return nil
}

package workers

import (
	"context"
	"time"

	"vulcan/internal/services/scanner"
)

// ScanConsumer receives each completed scan's ranked opportunities.
type ScanConsumer interface {
	ConsumeOpportunities(ctx context.Context, opportunities []scanner.Opportunity) error
}

// ScannerWorker runs the liquidation scanner on a fixed schedule and hands
// the ranked opportunities to a consumer, typically the alert history sink.
type ScannerWorker struct {
	*BaseWorker
	scanner  *scanner.Service
	consumer ScanConsumer
}

// NewScannerWorker creates a new scanner worker. The consumer is optional
// and may be nil; the scan still refreshes the opportunity gauge.
func NewScannerWorker(svc *scanner.Service, consumer ScanConsumer, interval time.Duration, enabled bool) *ScannerWorker {
	return &ScannerWorker{
		BaseWorker: NewBaseWorker("liquidation_scanner", interval, enabled),
		scanner:    svc,
		consumer:   consumer,
	}
}

// Run executes one scan
func (w *ScannerWorker) Run(ctx context.Context) error {
	start := time.Now()

	opportunities, err := w.scanner.Scan(ctx)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	if w.consumer != nil && len(opportunities) > 0 {
		if err := w.consumer.ConsumeOpportunities(ctx, opportunities); err != nil {
			w.RecordError(err, time.Since(start))
			return err
		}
	}

	w.RecordRun(time.Since(start))
	return nil
}

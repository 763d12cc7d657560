package workers

import (
	"context"

	"vulcan/internal/services/scanner"
)

// MultiScanConsumer fans one scan result out to several consumers. Every
// consumer is attempted; the first error is returned.
type MultiScanConsumer struct {
	consumers []ScanConsumer
}

// NewMultiScanConsumer creates a fanout over the given consumers
func NewMultiScanConsumer(consumers ...ScanConsumer) *MultiScanConsumer {
	return &MultiScanConsumer{consumers: consumers}
}

// ConsumeOpportunities delivers the opportunities to all consumers
func (m *MultiScanConsumer) ConsumeOpportunities(ctx context.Context, opportunities []scanner.Opportunity) error {
	var firstErr error
	for _, c := range m.consumers {
		if err := c.ConsumeOpportunities(ctx, opportunities); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package events

import (
	"context"

	"vulcan/internal/domain/alert"
	"vulcan/pkg/errors"
)

// FanoutSink delivers each alert to every configured sink. All sinks are
// attempted; the first failure is returned.
type FanoutSink struct {
	sinks []alert.Sink
}

// NewFanoutSink creates a fanout over the given sinks
func NewFanoutSink(sinks ...alert.Sink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

var _ alert.Sink = (*FanoutSink)(nil)

// Emit delivers one alert event to all sinks
func (f *FanoutSink) Emit(ctx context.Context, event alert.Event) error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "alert fanout")
		}
	}
	return firstErr
}

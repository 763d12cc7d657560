package events

import (
	"context"

	"vulcan/internal/domain/alert"
	"vulcan/pkg/logger"
)

// LogSink writes alerts to the application log. Used when no broker is
// configured, and as the fallback delivery path in development.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a new log sink
func NewLogSink() *LogSink {
	return &LogSink{log: logger.Get().With("component", "alert_log_sink")}
}

var _ alert.Sink = (*LogSink)(nil)

// Emit logs one alert event
func (s *LogSink) Emit(_ context.Context, event alert.Event) error {
	hf := "inf"
	if event.HealthFactor != nil {
		hf = event.HealthFactor.String()
	}

	s.log.Warnw("risk alert",
		"position_id", event.PositionID,
		"severity", event.Severity.String(),
		"health_factor", hf,
		"metadata", event.Metadata,
	)
	return nil
}

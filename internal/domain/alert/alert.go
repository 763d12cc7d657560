package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Severity is the risk tier of a position at one evaluation instant.
type Severity string

const (
	SeverityHealthy      Severity = "healthy"
	SeverityWarning      Severity = "warning"
	SeverityCritical     Severity = "critical"
	SeverityLiquidatable Severity = "liquidatable"
)

// String returns string representation
func (s Severity) String() string {
	return string(s)
}

// Alertable returns true for tiers that produce an alert event.
// Healthy positions emit nothing.
func (s Severity) Alertable() bool {
	return s == SeverityWarning || s == SeverityCritical || s == SeverityLiquidatable
}

// Event is one alert raised by the monitor for one position in one tick.
// The classification is memoryless: each tick re-derives the tier from the
// freshest health factor, and the external notifier deduplicates if it
// wants to.
type Event struct {
	PositionID   uuid.UUID         `json:"position_id"`
	Severity     Severity          `json:"severity"`
	HealthFactor *decimal.Decimal  `json:"health_factor,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	At           time.Time         `json:"at"`
}

// Sink consumes alert events. Emission is fire-and-forget: a sink failure
// is logged by the caller and never fails the monitor tick.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/alert"
)

// RiskSnapshot is the latest computed risk state of one position.
type RiskSnapshot struct {
	PositionID   uuid.UUID        `json:"position_id"`
	HealthFactor *decimal.Decimal `json:"health_factor,omitempty"`
	Severity     alert.Severity   `json:"severity"`
	At           time.Time        `json:"at"`
}

// SnapshotCache stores per-position risk snapshots so dashboards can read
// current state without querying the position store. Writes are best
// effort; the monitor ignores cache failures.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap RiskSnapshot) error
}

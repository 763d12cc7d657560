package position

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for position data access
type Repository interface {
	Create(ctx context.Context, position *Position) error
	GetByID(ctx context.Context, id uuid.UUID) (*Position, error)

	// FindAllActive returns all active positions ordered by ascending stored
	// health factor, worst first. Positions with no debt (infinite health
	// factor) sort last.
	FindAllActive(ctx context.Context) ([]*Position, error)

	// FindAllLiquidatable returns active positions whose stored health factor
	// is strictly below 1.0, ordered by ascending health factor.
	FindAllLiquidatable(ctx context.Context) ([]*Position, error)

	// UpdateHealthFactor persists a refreshed health factor.
	// A nil value records an infinite health factor (no debt).
	UpdateHealthFactor(ctx context.Context, id uuid.UUID, hf *decimal.Decimal) error

	// ClaimForLiquidation transitions the position from active to the
	// transient liquidating state. Exactly one concurrent caller succeeds;
	// the rest get ErrPositionNotActive. This is the position-scoped mutual
	// exclusion that prevents double liquidation.
	ClaimForLiquidation(ctx context.Context, id uuid.UUID) error

	// ReleaseClaim returns a claimed position to active after a failed
	// chain submission. No record was mutated, so retry stays possible.
	ReleaseClaim(ctx context.Context, id uuid.UUID) error

	// ApplyLiquidation writes the post-seizure amounts. When liquidated is
	// true the position moves to its terminal liquidated status and the
	// health factor is cleared, otherwise it returns to active.
	ApplyLiquidation(ctx context.Context, id uuid.UUID, remainingCollateral, remainingDebt decimal.Decimal, liquidated bool) error
}

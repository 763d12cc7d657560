package position

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position represents a user's leveraged exposure in one lending pool
type Position struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	PoolAddress     string `db:"pool_address"`
	CollateralAsset string `db:"collateral_asset"`
	DebtAsset       string `db:"debt_asset"`

	// Amounts
	CollateralAmount decimal.Decimal `db:"collateral_amount"`
	DebtAmount       decimal.Decimal `db:"debt_amount"`

	// HealthFactor is the last known health factor.
	// nil means infinite: the position has no debt.
	HealthFactor *decimal.Decimal `db:"health_factor"`

	Status    PositionStatus `db:"status"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// HasDebt returns true if the position has outstanding debt
func (p *Position) HasDebt() bool {
	return p.DebtAmount.IsPositive()
}

// IsLiquidatable returns true if the stored health factor is known and
// strictly below 1.0. A health factor of exactly 1.0 is safe.
func (p *Position) IsLiquidatable() bool {
	return p.HealthFactor != nil && p.HealthFactor.LessThan(decimal.NewFromInt(1))
}

// PositionStatus defines position lifecycle status
type PositionStatus string

const (
	PositionActive     PositionStatus = "active"
	PositionLiquidated PositionStatus = "liquidated"
	PositionClosed     PositionStatus = "closed"

	// PositionLiquidating is a transient claim state held only while a
	// liquidation is being executed. It is released back to active if the
	// chain submission fails.
	PositionLiquidating PositionStatus = "liquidating"
)

// Valid checks if position status is valid
func (s PositionStatus) Valid() bool {
	switch s {
	case PositionActive, PositionLiquidated, PositionClosed, PositionLiquidating:
		return true
	}
	return false
}

// String returns string representation
func (s PositionStatus) String() string {
	return string(s)
}

// IsActive returns true if the position can still be mutated.
// Liquidated and closed are terminal states.
func (s PositionStatus) IsActive() bool {
	return s == PositionActive
}

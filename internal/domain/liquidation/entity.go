package liquidation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Liquidation is an immutable record of one executed liquidation event.
// Created exactly once per chain submission the engine observed as
// accepted, never mutated or deleted.
type Liquidation struct {
	ID         uuid.UUID `db:"id"`
	PositionID uuid.UUID `db:"position_id"`

	Liquidator string `db:"liquidator"`
	TxHash     string `db:"tx_hash"`

	CollateralSeized decimal.Decimal `db:"collateral_seized"`
	DebtRepaid       decimal.Decimal `db:"debt_repaid"`
	Bonus            decimal.Decimal `db:"bonus"`

	CreatedAt time.Time `db:"created_at"`
}

package pool

import (
	"github.com/shopspring/decimal"
)

// Pool represents a lending market for one collateral/debt asset pair.
// Threshold and bonus are read-consistent within a single calculation:
// callers fetch the pool once and pass its values through, they never
// re-read mid-computation.
type Pool struct {
	Address         string `db:"address"`
	CollateralAsset string `db:"collateral_asset"`
	DebtAsset       string `db:"debt_asset"`

	// LiquidationThreshold is the risk-adjustment factor applied to
	// collateral value when assessing solvency. Fraction in (0,1).
	LiquidationThreshold decimal.Decimal `db:"liquidation_threshold"`

	// LiquidationBonus is the extra collateral awarded to the liquidator,
	// e.g. 0.05 = 5%. Fraction >= 0.
	LiquidationBonus decimal.Decimal `db:"liquidation_bonus"`

	Active bool `db:"active"`
}

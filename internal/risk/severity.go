package risk

import (
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/alert"
)

// Thresholds holds the tier boundaries for severity classification.
// The liquidatable boundary is always exactly 1.0 and is not configurable:
// it is the protocol's economic insolvency line.
type Thresholds struct {
	// Warning is the health factor below which a position is flagged
	// as approaching risk.
	Warning decimal.Decimal

	// Critical is the health factor below which a position is close
	// to liquidation.
	Critical decimal.Decimal
}

// DefaultThresholds returns the production tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:  decimal.RequireFromString("1.2"),
		Critical: decimal.RequireFromString("1.05"),
	}
}

var one = decimal.NewFromInt(1)

// Classify maps a health factor to a severity tier.
//
// Tiers are checked in descending order of severity so a position matching
// several tiers is reported only at its worst one. The liquidatable check
// is strictly below 1.0: a health factor of exactly 1.0 is safe.
// A nil health factor means no debt and is always healthy.
//
// The classification is pure: the same (health factor, thresholds) input
// always yields the same tier.
func Classify(hf *decimal.Decimal, t Thresholds) alert.Severity {
	if hf == nil {
		return alert.SeverityHealthy
	}
	switch {
	case hf.LessThan(one):
		return alert.SeverityLiquidatable
	case hf.LessThan(t.Critical):
		return alert.SeverityCritical
	case hf.LessThan(t.Warning):
		return alert.SeverityWarning
	default:
		return alert.SeverityHealthy
	}
}

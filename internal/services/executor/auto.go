package executor

import (
	"context"

	"vulcan/internal/services/scanner"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// AutoLiquidator turns scan results into liquidation attempts. It walks
// the ranked opportunities top down and tries a full liquidation of each.
// Losing a claim race or a stale candidate is expected and skipped.
type AutoLiquidator struct {
	executor   *Service
	liquidator string
	maxPerScan int
	log        *logger.Logger
}

// NewAutoLiquidator creates an auto liquidator acting as the given
// liquidator address. maxPerScan bounds attempts per scan; zero means all.
func NewAutoLiquidator(executor *Service, liquidator string, maxPerScan int) *AutoLiquidator {
	return &AutoLiquidator{
		executor:   executor,
		liquidator: liquidator,
		maxPerScan: maxPerScan,
		log:        logger.Get().With("component", "auto_liquidator"),
	}
}

// ConsumeOpportunities attempts the ranked opportunities in order.
func (a *AutoLiquidator) ConsumeOpportunities(ctx context.Context, opportunities []scanner.Opportunity) error {
	attempts := len(opportunities)
	if a.maxPerScan > 0 && attempts > a.maxPerScan {
		attempts = a.maxPerScan
	}

	for _, opp := range opportunities[:attempts] {
		result, err := a.executor.Execute(ctx, ExecuteRequest{
			PositionID: opp.PositionID,
			Liquidator: a.liquidator,
		})
		if err != nil {
			switch {
			case errors.Is(err, errors.ErrPositionNotActive),
				errors.Is(err, errors.ErrNotLiquidatable),
				errors.Is(err, errors.ErrPositionNotFound):
				// Raced or repriced since the scan
				a.log.Debugf("skipping %s: %v", opp.PositionID, err)
			case errors.Is(err, errors.ErrReconciliationRequired):
				// Already reported by the executor; keep going
				a.log.Errorf("reconciliation required for %s: %v", opp.PositionID, err)
			default:
				a.log.Warnf("liquidation of %s failed: %v", opp.PositionID, err)
			}
			continue
		}

		a.log.Infof("auto-liquidated %s: tx=%s repaid=%s bonus=%s",
			opp.PositionID, result.TxHash, result.DebtRepaid, result.Bonus)
	}

	return nil
}

package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/chain"
	"vulcan/internal/domain/liquidation"
	"vulcan/internal/domain/oracle"
	"vulcan/internal/domain/pool"
	"vulcan/internal/domain/position"
	"vulcan/internal/metrics"
	"vulcan/internal/risk"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// Config contains executor tunables.
type Config struct {
	// DustThreshold is the remaining-debt amount below which a partially
	// covered position is treated as fully liquidated rather than left
	// open with a near-zero balance.
	DustThreshold decimal.Decimal
}

// ExecuteRequest is one liquidation attempt against one position.
type ExecuteRequest struct {
	PositionID uuid.UUID

	// DebtToCover is the debt amount the liquidator repays.
	// nil means full outstanding debt.
	DebtToCover *decimal.Decimal

	// Liquidator is the address receiving the seized collateral.
	Liquidator string
}

// Result describes one accepted liquidation submission.
type Result struct {
	TxHash           string             `json:"tx_hash"`
	CollateralSeized decimal.Decimal    `json:"collateral_seized"`
	DebtRepaid       decimal.Decimal    `json:"debt_repaid"`
	Bonus            decimal.Decimal    `json:"bonus"`
	Position         *position.Position `json:"position"`
}

// Service executes liquidations. Preconditions are checked in a fixed
// order, each failing with its own sentinel so callers can decide whether
// to retry. The position-scoped claim in the store guarantees that two
// racing liquidators cannot both reach chain submission for the same
// position.
type Service struct {
	positions    position.Repository
	pools        pool.Repository
	liquidations liquidation.Repository
	oracle       oracle.PriceOracle
	chain        chain.TransactionExecutor
	tracker      errors.Tracker
	cfg          Config
	log          *logger.Logger
}

// NewService creates a new liquidation executor. The error tracker is
// optional and may be nil.
func NewService(
	positions position.Repository,
	pools pool.Repository,
	liquidations liquidation.Repository,
	priceOracle oracle.PriceOracle,
	chainExecutor chain.TransactionExecutor,
	tracker errors.Tracker,
	cfg Config,
) *Service {
	return &Service{
		positions:    positions,
		pools:        pools,
		liquidations: liquidations,
		oracle:       priceOracle,
		chain:        chainExecutor,
		tracker:      tracker,
		cfg:          cfg,
		log:          logger.Get().With("component", "liquidation_executor"),
	}
}

// Execute validates, submits and records one liquidation.
//
// Before chain submission every failure leaves the position untouched
// (a claimed position is released), so any rejection except
// ErrReconciliationRequired is safe to retry. After submission the chain
// transaction cannot be rolled back: a failure persisting the outcome is
// surfaced as ErrReconciliationRequired and reported to the error tracker.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*Result, error) {
	pos, err := s.positions.GetByID(ctx, req.PositionID)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if !pos.Status.IsActive() {
		return nil, s.rejectWith(errors.ErrPositionNotActive, "position %s is %s", pos.ID, pos.Status)
	}

	if !pos.IsLiquidatable() {
		return nil, s.rejectWith(errors.ErrNotLiquidatable, "position %s health factor not below 1.0", pos.ID)
	}

	lendingPool, err := s.pools.GetByAddress(ctx, pos.PoolAddress)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if req.DebtToCover != nil {
		if !req.DebtToCover.IsPositive() {
			return nil, s.rejectWith(errors.ErrInvalidInput, "debt to cover must be positive")
		}
		if req.DebtToCover.GreaterThan(pos.DebtAmount) {
			return nil, s.rejectWith(errors.ErrExceedsDebt, "debt to cover %s exceeds outstanding %s", *req.DebtToCover, pos.DebtAmount)
		}
	}

	// Claim the position before any further work. Exactly one concurrent
	// caller wins; the rest fail here with ErrPositionNotActive.
	if err := s.positions.ClaimForLiquidation(ctx, pos.ID); err != nil {
		s.reject(err)
		return nil, err
	}

	result, err := s.executeClaimed(ctx, pos.ID, lendingPool, req.DebtToCover, req.Liquidator)
	if err != nil && !errors.Is(err, errors.ErrReconciliationRequired) {
		// Nothing was mutated beyond the claim: hand the position back
		// so any liquidator can retry.
		if relErr := s.positions.ReleaseClaim(ctx, pos.ID); relErr != nil {
			s.log.Errorf("failed to release claim on %s: %v", pos.ID, relErr)
		}
	}
	return result, err
}

// executeClaimed runs the price-sensitive part of the liquidation while
// the position claim is held.
func (s *Service) executeClaimed(
	ctx context.Context,
	positionID uuid.UUID,
	lendingPool *pool.Pool,
	requestedDebt *decimal.Decimal,
	liquidator string,
) (*Result, error) {
	// The snapshot read before the claim may predate a competing partial
	// liquidation that already released the position back to active. All
	// amounts from here on derive from the row as it stands under our claim.
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if !pos.IsLiquidatable() {
		return nil, s.rejectWith(errors.ErrNotLiquidatable, "position %s recovered before execution", pos.ID)
	}

	debtToCover := pos.DebtAmount
	if requestedDebt != nil {
		debtToCover = *requestedDebt
		if debtToCover.GreaterThan(pos.DebtAmount) {
			return nil, s.rejectWith(errors.ErrExceedsDebt,
				"debt to cover %s exceeds outstanding %s", debtToCover, pos.DebtAmount)
		}
	}

	// Prices are fetched at execution time, never reused from a monitor
	// sweep: staleness here directly affects the solvency of the
	// liquidation itself.
	prices, err := s.oracle.GetPrices(ctx, []string{pos.CollateralAsset, pos.DebtAsset})
	if err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return nil, s.rejectWith(errors.ErrPriceUnavailable, "fresh price lookup: %v", err)
	}
	metrics.OracleCalls.WithLabelValues("success").Inc()

	seizure, err := risk.Seizure(
		debtToCover,
		prices[pos.DebtAsset],
		prices[pos.CollateralAsset],
		lendingPool.LiquidationBonus,
	)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if seizure.CollateralToSeize.GreaterThan(pos.CollateralAmount) {
		return nil, s.rejectWith(errors.ErrInsufficientCollateral,
			"seizure %s exceeds collateral %s", seizure.CollateralToSeize, pos.CollateralAmount)
	}

	txHash, err := s.chain.SubmitLiquidation(ctx, chain.LiquidationIntent{
		PoolAddress: pos.PoolAddress,
		PositionID:  pos.ID,
		DebtToCover: debtToCover,
		Liquidator:  liquidator,
	})
	if err != nil {
		return nil, s.rejectWith(errors.ErrTransactionFailed, "submit liquidation for %s: %v", pos.ID, err)
	}

	remainingDebt := pos.DebtAmount.Sub(debtToCover)
	remainingCollateral := pos.CollateralAmount.Sub(seizure.CollateralToSeize)
	fullyLiquidated := remainingDebt.LessThanOrEqual(s.cfg.DustThreshold)

	// From here on the transaction is on chain. Persistence failures can
	// no longer be rolled back and become reconciliation work.
	if err := s.positions.ApplyLiquidation(ctx, pos.ID, remainingCollateral, remainingDebt, fullyLiquidated); err != nil {
		return nil, s.reconciliationRequired(ctx, pos.ID, txHash,
			errors.Wrapf(err, "position update lost after submission of %s", txHash))
	}

	record := &liquidation.Liquidation{
		ID:               uuid.New(),
		PositionID:       pos.ID,
		Liquidator:       liquidator,
		TxHash:           txHash,
		CollateralSeized: seizure.CollateralToSeize,
		DebtRepaid:       debtToCover,
		Bonus:            seizure.Bonus,
		CreatedAt:        time.Now(),
	}
	if err := s.liquidations.Create(ctx, record); err != nil {
		return nil, s.reconciliationRequired(ctx, pos.ID, txHash,
			errors.Wrapf(err, "liquidation record lost after submission of %s", txHash))
	}

	updated := *pos
	updated.CollateralAmount = remainingCollateral
	updated.DebtAmount = remainingDebt
	if fullyLiquidated {
		updated.Status = position.PositionLiquidated
		updated.HealthFactor = nil
	} else {
		updated.Status = position.PositionActive
	}
	updated.UpdatedAt = record.CreatedAt

	metrics.LiquidationsExecuted.Inc()
	s.log.Infof("liquidated position %s: tx=%s seized=%s repaid=%s bonus=%s full=%v",
		pos.ID, txHash, seizure.CollateralToSeize, debtToCover, seizure.Bonus, fullyLiquidated)

	return &Result{
		TxHash:           txHash,
		CollateralSeized: seizure.CollateralToSeize,
		DebtRepaid:       debtToCover,
		Bonus:            seizure.Bonus,
		Position:         &updated,
	}, nil
}

// reconciliationRequired classifies a post-submission persistence failure.
// These are logged apart from ordinary rejections and pushed to the error
// tracker: the chain state and the store have diverged.
func (s *Service) reconciliationRequired(ctx context.Context, positionID uuid.UUID, txHash string, cause error) error {
	err := errors.Wrapf(errors.ErrReconciliationRequired, "position %s tx %s: %v", positionID, txHash, cause)

	metrics.ReconciliationsRequired.Inc()
	s.log.Errorf("RECONCILIATION REQUIRED: %v", err)

	if s.tracker != nil {
		_ = s.tracker.CaptureError(ctx, err, map[string]string{
			"component":   "liquidation_executor",
			"position_id": positionID.String(),
			"tx_hash":     txHash,
		})
	}

	return err
}

func (s *Service) rejectWith(sentinel error, format string, args ...interface{}) error {
	err := errors.Wrapf(sentinel, format, args...)
	s.reject(err)
	return err
}

func (s *Service) reject(err error) {
	metrics.LiquidationsRejected.WithLabelValues(rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrPositionNotFound):
		return "position_not_found"
	case errors.Is(err, errors.ErrPositionNotActive):
		return "position_not_active"
	case errors.Is(err, errors.ErrNotLiquidatable):
		return "not_liquidatable"
	case errors.Is(err, errors.ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, errors.ErrExceedsDebt):
		return "exceeds_debt"
	case errors.Is(err, errors.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, errors.ErrPriceUnavailable):
		return "price_unavailable"
	case errors.Is(err, errors.ErrTransactionFailed):
		return "transaction_failed"
	case errors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/alert"
	"vulcan/internal/domain/oracle"
	"vulcan/internal/domain/pool"
	"vulcan/internal/domain/position"
	"vulcan/internal/metrics"
	"vulcan/internal/risk"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// Config contains monitor tunables.
type Config struct {
	// Thresholds are the severity tier boundaries.
	Thresholds risk.Thresholds

	// TickBudget bounds one sweep. A sweep that cannot finish inside the
	// budget is abandoned; the next scheduled sweep starts fresh.
	// Zero means no budget.
	TickBudget time.Duration
}

// Service sweeps all active positions, refreshes their health factors and
// raises severity alerts. One sweep uses one internally-consistent price
// snapshot: every position in the sweep sees prices fetched at the same
// instant.
type Service struct {
	positions position.Repository
	pools     pool.Repository
	oracle    oracle.PriceOracle
	sink      alert.Sink
	cache     SnapshotCache
	cfg       Config
	log       *logger.Logger

	statsMu sync.RWMutex
	stats   Stats
}

// Stats holds counters accumulated across sweeps. Queryable at any time
// without stopping the scheduler.
type Stats struct {
	TotalRuns          int64
	PositionsChecked   int64
	WarningAlerts      int64
	CriticalAlerts     int64
	LiquidatableAlerts int64
	Errors             int64
	LastRunAt          time.Time
}

// NewService creates a new position monitor. The snapshot cache is
// optional and may be nil.
func NewService(
	positions position.Repository,
	pools pool.Repository,
	priceOracle oracle.PriceOracle,
	sink alert.Sink,
	cache SnapshotCache,
	cfg Config,
) *Service {
	return &Service{
		positions: positions,
		pools:     pools,
		oracle:    priceOracle,
		sink:      sink,
		cache:     cache,
		cfg:       cfg,
		log:       logger.Get().With("component", "position_monitor"),
	}
}

// Tick runs one full sweep over all active positions.
//
// A price oracle failure abandons the whole tick: stored health factors
// from the previous successful sweep stay authoritative until the next
// run. A failure on any single position is isolated, counted and logged;
// the rest of the sweep continues.
func (s *Service) Tick(ctx context.Context) error {
	if s.cfg.TickBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TickBudget)
		defer cancel()
	}

	positions, err := s.positions.FindAllActive(ctx)
	if err != nil {
		s.recordRun(func(st *Stats) { st.Errors++ })
		metrics.MonitorTicks.WithLabelValues("error").Inc()
		return errors.Wrap(err, "load active positions")
	}

	indebted := make([]*position.Position, 0, len(positions))
	for _, pos := range positions {
		// Zero-debt positions are always healthy and cost nothing:
		// no price lookup, no alert.
		if pos.HasDebt() {
			indebted = append(indebted, pos)
		}
	}

	if len(indebted) == 0 {
		s.recordRun(nil)
		metrics.MonitorTicks.WithLabelValues("success").Inc()
		return nil
	}

	prices, err := s.oracle.GetPrices(ctx, s.collectSymbols(indebted))
	if err != nil {
		s.recordRun(func(st *Stats) { st.Errors++ })
		metrics.OracleCalls.WithLabelValues("error").Inc()
		metrics.MonitorTicks.WithLabelValues("price_unavailable").Inc()
		return errors.Wrapf(errors.ErrPriceUnavailable, "batch price lookup: %v", err)
	}
	metrics.OracleCalls.WithLabelValues("success").Inc()

	var checked, evalErrors int64
	alerts := map[alert.Severity]int64{}
	poolCache := make(map[string]*pool.Pool)

	for _, pos := range indebted {
		severity, err := s.evaluate(ctx, pos, prices, poolCache)
		if err != nil {
			evalErrors++
			metrics.MonitorPositionErrors.Inc()
			s.log.Warnf("position %s evaluation failed: %v", pos.ID, err)
			continue
		}

		checked++
		metrics.MonitorPositionsChecked.Inc()
		if severity.Alertable() {
			alerts[severity]++
			metrics.MonitorAlerts.WithLabelValues(severity.String()).Inc()
		}
	}

	s.recordRun(func(st *Stats) {
		st.PositionsChecked += checked
		st.WarningAlerts += alerts[alert.SeverityWarning]
		st.CriticalAlerts += alerts[alert.SeverityCritical]
		st.LiquidatableAlerts += alerts[alert.SeverityLiquidatable]
		st.Errors += evalErrors
	})
	metrics.MonitorTicks.WithLabelValues("success").Inc()

	s.log.Infof("sweep complete: checked=%d alerts=%d errors=%d",
		checked, alerts[alert.SeverityWarning]+alerts[alert.SeverityCritical]+alerts[alert.SeverityLiquidatable], evalErrors)

	return nil
}

// evaluate recomputes and persists one position's health factor and emits
// an alert when it matches a tier.
func (s *Service) evaluate(
	ctx context.Context,
	pos *position.Position,
	prices map[string]decimal.Decimal,
	poolCache map[string]*pool.Pool,
) (alert.Severity, error) {
	p, ok := poolCache[pos.PoolAddress]
	if !ok {
		var err error
		p, err = s.pools.GetByAddress(ctx, pos.PoolAddress)
		if err != nil {
			return alert.SeverityHealthy, errors.Wrapf(err, "pool %s", pos.PoolAddress)
		}
		poolCache[pos.PoolAddress] = p
	}

	collateralPrice, ok := prices[pos.CollateralAsset]
	if !ok {
		return alert.SeverityHealthy, errors.Wrapf(errors.ErrPriceUnavailable, "no price for %s", pos.CollateralAsset)
	}
	debtPrice, ok := prices[pos.DebtAsset]
	if !ok {
		return alert.SeverityHealthy, errors.Wrapf(errors.ErrPriceUnavailable, "no price for %s", pos.DebtAsset)
	}

	hf, infinite, err := risk.HealthFactor(
		pos.CollateralAmount, pos.DebtAmount,
		collateralPrice, debtPrice,
		p.LiquidationThreshold,
	)
	if err != nil {
		return alert.SeverityHealthy, err
	}

	var hfPtr *decimal.Decimal
	if !infinite {
		hfPtr = &hf
	}

	if err := s.positions.UpdateHealthFactor(ctx, pos.ID, hfPtr); err != nil {
		return alert.SeverityHealthy, errors.Wrap(err, "persist health factor")
	}

	severity := risk.Classify(hfPtr, s.cfg.Thresholds)

	if s.cache != nil {
		// Best effort: a cache failure never fails the sweep
		if err := s.cache.SetSnapshot(ctx, RiskSnapshot{
			PositionID:   pos.ID,
			HealthFactor: hfPtr,
			Severity:     severity,
			At:           time.Now(),
		}); err != nil {
			s.log.Debugf("snapshot cache write failed for %s: %v", pos.ID, err)
		}
	}

	if severity.Alertable() {
		s.emitAlert(ctx, pos, collateralPrice, severity, hfPtr)
	}

	return severity, nil
}

// emitAlert sends one alert event. Delivery is best effort: failures are
// logged and dropped; the next sweep re-evaluates and may re-alert.
func (s *Service) emitAlert(ctx context.Context, pos *position.Position, collateralPrice decimal.Decimal, severity alert.Severity, hf *decimal.Decimal) {
	collateralValue := pos.CollateralAmount.Mul(collateralPrice)

	event := alert.Event{
		PositionID:   pos.ID,
		Severity:     severity,
		HealthFactor: hf,
		Metadata: map[string]string{
			"pool":             pos.PoolAddress,
			"collateral_asset": pos.CollateralAsset,
			"debt_asset":       pos.DebtAsset,
			"collateral_value": "$" + humanize.CommafWithDigits(collateralValue.InexactFloat64(), 2),
		},
		At: time.Now(),
	}

	if err := s.sink.Emit(ctx, event); err != nil {
		metrics.AlertSinkFailures.Inc()
		s.log.Warnf("alert emit failed for %s (%s): %v", pos.ID, severity, err)
	}
}

// collectSymbols returns the distinct asset symbols referenced by the
// given positions, so the whole sweep costs one oracle call.
func (s *Service) collectSymbols(positions []*position.Position) []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, len(positions)*2)

	for _, pos := range positions {
		for _, sym := range []string{pos.CollateralAsset, pos.DebtAsset} {
			if _, ok := seen[sym]; !ok {
				seen[sym] = struct{}{}
				symbols = append(symbols, sym)
			}
		}
	}

	return symbols
}

// Stats returns a copy of the accumulated counters.
func (s *Service) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Service) recordRun(update func(*Stats)) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.stats.TotalRuns++
	s.stats.LastRunAt = time.Now()
	if update != nil {
		update(&s.stats)
	}
}

package scanner

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/oracle"
	"vulcan/internal/domain/pool"
	"vulcan/internal/domain/position"
	"vulcan/internal/metrics"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// Opportunity is one liquidatable position ranked by estimated profit.
type Opportunity struct {
	PositionID   uuid.UUID       `json:"position_id"`
	UserID       uuid.UUID       `json:"user_id"`
	PoolAddress  string          `json:"pool_address"`
	HealthFactor decimal.Decimal `json:"health_factor"`

	CollateralValue decimal.Decimal `json:"collateral_value"`

	// EstimatedProfit is collateral value times the pool's liquidation
	// bonus. Gas and price impact are not netted: this is a ranking
	// proxy, not a PnL forecast.
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
}

// Service finds and ranks liquidation opportunities on demand. It is
// typically polled by external liquidator clients, independently of the
// monitor's cadence.
type Service struct {
	positions position.Repository
	pools     pool.Repository
	oracle    oracle.PriceOracle
	log       *logger.Logger
}

// NewService creates a new liquidation scanner
func NewService(positions position.Repository, pools pool.Repository, priceOracle oracle.PriceOracle) *Service {
	return &Service{
		positions: positions,
		pools:     pools,
		oracle:    priceOracle,
		log:       logger.Get().With("component", "liquidation_scanner"),
	}
}

// Scan returns all liquidatable positions ordered by descending estimated
// profit. A failure pricing one candidate excludes that candidate only;
// an oracle failure fails the whole scan.
func (s *Service) Scan(ctx context.Context) ([]Opportunity, error) {
	candidates, err := s.positions.FindAllLiquidatable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load liquidatable positions")
	}

	if len(candidates) == 0 {
		metrics.ScanOpportunities.Set(0)
		return nil, nil
	}

	prices, err := s.oracle.GetPrices(ctx, collectSymbols(candidates))
	if err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(errors.ErrPriceUnavailable, "batch price lookup: %v", err)
	}
	metrics.OracleCalls.WithLabelValues("success").Inc()

	opportunities := make([]Opportunity, 0, len(candidates))
	poolCache := make(map[string]*pool.Pool)

	for _, pos := range candidates {
		opp, err := s.estimate(ctx, pos, prices, poolCache)
		if err != nil {
			s.log.Warnf("skipping candidate %s: %v", pos.ID, err)
			continue
		}
		opportunities = append(opportunities, opp)
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].EstimatedProfit.GreaterThan(opportunities[j].EstimatedProfit)
	})

	metrics.ScanOpportunities.Set(float64(len(opportunities)))

	return opportunities, nil
}

func (s *Service) estimate(
	ctx context.Context,
	pos *position.Position,
	prices map[string]decimal.Decimal,
	poolCache map[string]*pool.Pool,
) (Opportunity, error) {
	if pos.HealthFactor == nil {
		return Opportunity{}, errors.Wrapf(errors.ErrInvalidInput, "position %s has no stored health factor", pos.ID)
	}

	p, ok := poolCache[pos.PoolAddress]
	if !ok {
		var err error
		p, err = s.pools.GetByAddress(ctx, pos.PoolAddress)
		if err != nil {
			return Opportunity{}, errors.Wrapf(err, "pool %s", pos.PoolAddress)
		}
		poolCache[pos.PoolAddress] = p
	}

	collateralPrice, ok := prices[pos.CollateralAsset]
	if !ok {
		return Opportunity{}, errors.Wrapf(errors.ErrPriceUnavailable, "no price for %s", pos.CollateralAsset)
	}

	collateralValue := pos.CollateralAmount.Mul(collateralPrice)

	return Opportunity{
		PositionID:      pos.ID,
		UserID:          pos.UserID,
		PoolAddress:     pos.PoolAddress,
		HealthFactor:    *pos.HealthFactor,
		CollateralValue: collateralValue,
		EstimatedProfit: collateralValue.Mul(p.LiquidationBonus),
	}, nil
}

func collectSymbols(positions []*position.Position) []string {
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

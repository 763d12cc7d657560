package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vulcan/internal/domain/alert"
	"vulcan/internal/domain/pool"
	"vulcan/internal/domain/position"
	"vulcan/internal/risk"
	"vulcan/pkg/errors"
)

// MockPositionRepository is a mock for position.Repository
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Create(ctx context.Context, pos *position.Position) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*position.Position), args.Error(1)
}

func (m *MockPositionRepository) FindAllActive(ctx context.Context) ([]*position.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*position.Position), args.Error(1)
}

func (m *MockPositionRepository) FindAllLiquidatable(ctx context.Context) ([]*position.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*position.Position), args.Error(1)
}

func (m *MockPositionRepository) UpdateHealthFactor(ctx context.Context, id uuid.UUID, hf *decimal.Decimal) error {
	args := m.Called(ctx, id, hf)
	return args.Error(0)
}

func (m *MockPositionRepository) ClaimForLiquidation(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPositionRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPositionRepository) ApplyLiquidation(ctx context.Context, id uuid.UUID, remainingCollateral, remainingDebt decimal.Decimal, liquidated bool) error {
	args := m.Called(ctx, id, remainingCollateral, remainingDebt, liquidated)
	return args.Error(0)
}

// MockPoolRepository is a mock for pool.Repository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) GetByAddress(ctx context.Context, address string) (*pool.Pool, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

// MockOracle is a mock for oracle.PriceOracle
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// MockSink records emitted alert events
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Emit(ctx context.Context, event alert.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPool() *pool.Pool {
	return &pool.Pool{
		Address:              "0xpool",
		CollateralAsset:      "ETH",
		DebtAsset:            "USDC",
		LiquidationThreshold: dec("0.8"),
		LiquidationBonus:     dec("0.05"),
		Active:               true,
	}
}

func testPosition(collateral, debt string) *position.Position {
	return &position.Position{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		PoolAddress:      "0xpool",
		CollateralAsset:  "ETH",
		DebtAsset:        "USDC",
		CollateralAmount: dec(collateral),
		DebtAmount:       dec(debt),
		Status:           position.PositionActive,
		UpdatedAt:        time.Now(),
	}
}

func newTestService(positions *MockPositionRepository, pools *MockPoolRepository, oracle *MockOracle, sink *MockSink) *Service {
	return NewService(positions, pools, oracle, sink, nil, Config{
		Thresholds: risk.DefaultThresholds(),
	})
}

func TestTick_ClassifiesAndAlerts(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	// hf = (10*2500*0.8)/21000 ≈ 0.952 → liquidatable
	underwater := testPosition("10", "21000")
	// hf = (10*2500*0.8)/18000 ≈ 1.111 → warning
	risky := testPosition("10", "18000")

	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{underwater, risky}, nil)
	pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(map[string]decimal.Decimal{"ETH": dec("2500"), "USDC": dec("1")}, nil)
	positions.On("UpdateHealthFactor", mock.Anything, underwater.ID, mock.Anything).Return(nil)
	positions.On("UpdateHealthFactor", mock.Anything, risky.ID, mock.Anything).Return(nil)

	sink.On("Emit", mock.Anything, mock.MatchedBy(func(e alert.Event) bool {
		return e.PositionID == underwater.ID && e.Severity == alert.SeverityLiquidatable
	})).Return(nil).Once()
	sink.On("Emit", mock.Anything, mock.MatchedBy(func(e alert.Event) bool {
		return e.PositionID == risky.ID && e.Severity == alert.SeverityWarning
	})).Return(nil).Once()

	svc := newTestService(positions, pools, oracle, sink)
	require.NoError(t, svc.Tick(context.Background()))

	// One batched price call for the whole sweep
	oracle.AssertNumberOfCalls(t, "GetPrices", 1)
	sink.AssertExpectations(t)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.PositionsChecked)
	assert.Equal(t, int64(1), stats.WarningAlerts)
	assert.Equal(t, int64(1), stats.LiquidatableAlerts)
	assert.Equal(t, int64(0), stats.Errors)
}

func TestTick_ZeroDebtSkipsPriceLookup(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{testPosition("10", "0")}, nil)

	svc := newTestService(positions, pools, oracle, sink)
	require.NoError(t, svc.Tick(context.Background()))

	// Risk-free positions cost nothing: no oracle call, no alert
	oracle.AssertNotCalled(t, "GetPrices", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)

	assert.Equal(t, int64(1), svc.Stats().TotalRuns)
}

func TestTick_OracleFailureAbandonsTick(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{testPosition("10", "21000")}, nil)
	oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(nil, errors.New("oracle timeout"))

	svc := newTestService(positions, pools, oracle, sink)
	err := svc.Tick(context.Background())

	assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
	// Stale health factors stay authoritative: nothing was persisted
	positions.AssertNotCalled(t, "UpdateHealthFactor", mock.Anything, mock.Anything, mock.Anything)
}

func TestTick_PerPositionFailureIsIsolated(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	broken := testPosition("10", "21000")
	broken.PoolAddress = "0xmissing"
	healthy := testPosition("100", "1000")

	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{broken, healthy}, nil)
	oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(map[string]decimal.Decimal{"ETH": dec("2500"), "USDC": dec("1")}, nil)
	pools.On("GetByAddress", mock.Anything, "0xmissing").
		Return(nil, errors.Wrap(errors.ErrPoolNotFound, "0xmissing"))
	pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	positions.On("UpdateHealthFactor", mock.Anything, healthy.ID, mock.Anything).Return(nil)

	svc := newTestService(positions, pools, oracle, sink)
	require.NoError(t, svc.Tick(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.PositionsChecked)
	assert.Equal(t, int64(1), stats.Errors)
}

func TestTick_SinkFailureDoesNotFailSweep(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	pos := testPosition("10", "21000")
	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{pos}, nil)
	pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(map[string]decimal.Decimal{"ETH": dec("2500"), "USDC": dec("1")}, nil)
	positions.On("UpdateHealthFactor", mock.Anything, pos.ID, mock.Anything).Return(nil)
	sink.On("Emit", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := newTestService(positions, pools, oracle, sink)
	require.NoError(t, svc.Tick(context.Background()))

	// The alert is counted even though delivery failed; the next sweep
	// will re-evaluate and may re-alert
	assert.Equal(t, int64(1), svc.Stats().LiquidatableAlerts)
}

func TestTick_PersistsRefreshedHealthFactor(t *testing.T) {
	positions := new(MockPositionRepository)
	pools := new(MockPoolRepository)
	oracle := new(MockOracle)
	sink := new(MockSink)

	pos := testPosition("10", "20000")
	positions.On("FindAllActive", mock.Anything).
		Return([]*position.Position{pos}, nil)
	pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(map[string]decimal.Decimal{"ETH": dec("2500"), "USDC": dec("1")}, nil)

	positions.On("UpdateHealthFactor", mock.Anything, pos.ID, mock.MatchedBy(func(hf *decimal.Decimal) bool {
		// (10*2500*0.8)/20000 = 1.0 exactly: stored, and not liquidatable
		return hf != nil && hf.Equal(dec("1"))
	})).Return(nil).Once()

	// hf exactly 1.0 classifies as critical (< 1.05), never liquidatable
	sink.On("Emit", mock.Anything, mock.MatchedBy(func(e alert.Event) bool {
		return e.Severity == alert.SeverityCritical
	})).Return(nil).Once()

	svc := newTestService(positions, pools, oracle, sink)
	require.NoError(t, svc.Tick(context.Background()))

	positions.AssertExpectations(t)
	sink.AssertExpectations(t)
}

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vulcan/internal/domain/chain"
	"vulcan/internal/domain/liquidation"
	"vulcan/internal/domain/pool"
	"vulcan/internal/domain/position"
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

// MockLiquidationRepository is a mock for liquidation.Repository
type MockLiquidationRepository struct {
	mock.Mock
}

func (m *MockLiquidationRepository) Create(ctx context.Context, liq *liquidation.Liquidation) error {
	args := m.Called(ctx, liq)
	return args.Error(0)
}

func (m *MockLiquidationRepository) GetByPosition(ctx context.Context, positionID uuid.UUID) ([]*liquidation.Liquidation, error) {
	args := m.Called(ctx, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*liquidation.Liquidation), args.Error(1)
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

// MockChainExecutor is a mock for chain.TransactionExecutor
type MockChainExecutor struct {
	mock.Mock
}

func (m *MockChainExecutor) SubmitLiquidation(ctx context.Context, intent chain.LiquidationIntent) (string, error) {
	args := m.Called(ctx, intent)
	return args.String(0), args.Error(1)
}

type fixture struct {
	positions    *MockPositionRepository
	pools        *MockPoolRepository
	liquidations *MockLiquidationRepository
	oracle       *MockOracle
	chain        *MockChainExecutor
	svc          *Service
}

func newFixture() *fixture {
	f := &fixture{
		positions:    new(MockPositionRepository),
		pools:        new(MockPoolRepository),
		liquidations: new(MockLiquidationRepository),
		oracle:       new(MockOracle),
		chain:        new(MockChainExecutor),
	}
	f.svc = NewService(f.positions, f.pools, f.liquidations, f.oracle, f.chain, nil, Config{
		DustThreshold: dec("0.000001"),
	})
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func hfPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func underwaterPosition() *position.Position {
	return &position.Position{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		PoolAddress:      "0xpool",
		CollateralAsset:  "ETH",
		DebtAsset:        "USDC",
		CollateralAmount: dec("10"),
		DebtAmount:       dec("21000"),
		HealthFactor:     hfPtr("0.952"),
		Status:           position.PositionActive,
		UpdatedAt:        time.Now(),
	}
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

func testPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"ETH": dec("2500"), "USDC": dec("1")}
}

func TestExecute_FullLiquidation(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
	f.oracle.On("GetPrices", mock.Anything, []string{"ETH", "USDC"}).Return(testPrices(), nil)
	f.chain.On("SubmitLiquidation", mock.Anything, mock.MatchedBy(func(in chain.LiquidationIntent) bool {
		return in.PositionID == pos.ID && in.DebtToCover.Equal(dec("21000"))
	})).Return("0xtx1", nil)

	// Repaying 21000 USDC at 5% bonus seizes 8.82 ETH and leaves 1.18
	f.positions.On("ApplyLiquidation", mock.Anything, pos.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("1.18")) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.IsZero() }),
		true,
	).Return(nil)
	f.liquidations.On("Create", mock.Anything, mock.MatchedBy(func(l *liquidation.Liquidation) bool {
		return l.PositionID == pos.ID &&
			l.TxHash == "0xtx1" &&
			l.CollateralSeized.Equal(dec("8.82")) &&
			l.DebtRepaid.Equal(dec("21000")) &&
			l.Bonus.Equal(dec("0.42"))
	})).Return(nil)

	result, err := f.svc.Execute(context.Background(), ExecuteRequest{
		PositionID: pos.ID,
		Liquidator: "0xliquidator",
	})

	require.NoError(t, err)
	assert.Equal(t, "0xtx1", result.TxHash)
	assert.True(t, result.CollateralSeized.Equal(dec("8.82")))
	assert.True(t, result.Bonus.Equal(dec("0.42")))
	assert.Equal(t, position.PositionLiquidated, result.Position.Status)
	assert.Nil(t, result.Position.HealthFactor)
	assert.True(t, result.Position.CollateralAmount.Equal(dec("1.18")))

	f.positions.AssertExpectations(t)
	f.liquidations.AssertExpectations(t)
	f.positions.AssertNotCalled(t, "ReleaseClaim", mock.Anything, mock.Anything)
}

func TestExecute_PartialLiquidationKeepsPositionActive(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
	f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
	f.chain.On("SubmitLiquidation", mock.Anything, mock.Anything).Return("0xtx2", nil)

	// Half the debt: 10500 USDC seizes 4.41 ETH, position stays open
	f.positions.On("ApplyLiquidation", mock.Anything, pos.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("5.59")) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("10500")) }),
		false,
	).Return(nil)
	f.liquidations.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Execute(context.Background(), ExecuteRequest{
		PositionID:  pos.ID,
		DebtToCover: hfPtr("10500"),
		Liquidator:  "0xliquidator",
	})

	require.NoError(t, err)
	assert.Equal(t, position.PositionActive, result.Position.Status)
	assert.True(t, result.Position.DebtAmount.Equal(dec("10500")))
	assert.True(t, result.CollateralSeized.Equal(dec("4.41")))
}

func TestExecute_PositionNotFound(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	f.positions.On("GetByID", mock.Anything, id).
		Return(nil, errors.Wrap(errors.ErrPositionNotFound, id.String()))

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: id})
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
}

func TestExecute_PositionNotActive(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()
	pos.Status = position.PositionLiquidated

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})
	assert.True(t, errors.Is(err, errors.ErrPositionNotActive))
	f.positions.AssertNotCalled(t, "ClaimForLiquidation", mock.Anything, mock.Anything)
}

func TestExecute_NotLiquidatable(t *testing.T) {
	f := newFixture()

	t.Run("healthy health factor", func(t *testing.T) {
		pos := underwaterPosition()
		pos.HealthFactor = hfPtr("1.5")
		f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)

		_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})
		assert.True(t, errors.Is(err, errors.ErrNotLiquidatable))
	})

	t.Run("health factor exactly 1.0 is safe", func(t *testing.T) {
		pos := underwaterPosition()
		pos.HealthFactor = hfPtr("1.0")
		f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)

		_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})
		assert.True(t, errors.Is(err, errors.ErrNotLiquidatable))
	})

	t.Run("no stored health factor", func(t *testing.T) {
		pos := underwaterPosition()
		pos.HealthFactor = nil
		f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)

		_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})
		assert.True(t, errors.Is(err, errors.ErrNotLiquidatable))
	})
}

func TestExecute_ExceedsDebt(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{
		PositionID:  pos.ID,
		DebtToCover: hfPtr("21001"),
	})

	assert.True(t, errors.Is(err, errors.ErrExceedsDebt))
	f.positions.AssertNotCalled(t, "ClaimForLiquidation", mock.Anything, mock.Anything)
}

func TestExecute_LosingRacerGetsPositionNotActive(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	// Another liquidator claimed the row first
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).
		Return(errors.Wrap(errors.ErrPositionNotActive, pos.ID.String()))

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

	assert.True(t, errors.Is(err, errors.ErrPositionNotActive))
	f.chain.AssertNotCalled(t, "SubmitLiquidation", mock.Anything, mock.Anything)
	f.positions.AssertNotCalled(t, "ReleaseClaim", mock.Anything, mock.Anything)
}

func TestExecute_RacedPartialLiquidationUsesFreshAmounts(t *testing.T) {
	f := newFixture()
	stale := underwaterPosition()

	// Between our first read and the claim a competing liquidator repaid
	// half the debt and released the position. The row under our claim
	// holds the post-seizure amounts.
	fresh := underwaterPosition()
	fresh.ID = stale.ID
	fresh.CollateralAmount = dec("5.59")
	fresh.DebtAmount = dec("10500")
	fresh.Status = position.PositionLiquidating

	f.positions.On("GetByID", mock.Anything, stale.ID).Return(stale, nil).Once()
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, stale.ID).Return(nil)
	f.positions.On("GetByID", mock.Anything, stale.ID).Return(fresh, nil).Once()
	f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
	f.chain.On("SubmitLiquidation", mock.Anything, mock.MatchedBy(func(in chain.LiquidationIntent) bool {
		return in.DebtToCover.Equal(dec("10500"))
	})).Return("0xtx5", nil)

	// Repaying the remaining 10500 seizes 4.41 ETH of the 5.59 still held
	f.positions.On("ApplyLiquidation", mock.Anything, stale.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("1.18")) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.IsZero() }),
		true,
	).Return(nil)
	f.liquidations.On("Create", mock.Anything, mock.MatchedBy(func(l *liquidation.Liquidation) bool {
		return l.DebtRepaid.Equal(dec("10500")) && l.CollateralSeized.Equal(dec("4.41"))
	})).Return(nil)

	result, err := f.svc.Execute(context.Background(), ExecuteRequest{
		PositionID: stale.ID,
		Liquidator: "0xliquidator",
	})

	require.NoError(t, err)
	assert.True(t, result.DebtRepaid.Equal(dec("10500")))
	assert.True(t, result.Position.CollateralAmount.Equal(dec("1.18")))
	f.positions.AssertExpectations(t)
	f.chain.AssertExpectations(t)
}

func TestExecute_PositionRecoveredUnderClaimReleasesIt(t *testing.T) {
	f := newFixture()
	stale := underwaterPosition()

	// A monitor sweep refreshed the health factor above 1.0 after our
	// first read; the row under the claim is no longer liquidatable.
	fresh := underwaterPosition()
	fresh.ID = stale.ID
	fresh.HealthFactor = hfPtr("1.03")
	fresh.Status = position.PositionLiquidating

	f.positions.On("GetByID", mock.Anything, stale.ID).Return(stale, nil).Once()
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, stale.ID).Return(nil)
	f.positions.On("GetByID", mock.Anything, stale.ID).Return(fresh, nil).Once()
	f.positions.On("ReleaseClaim", mock.Anything, stale.ID).Return(nil)

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: stale.ID})

	assert.True(t, errors.Is(err, errors.ErrNotLiquidatable))
	f.chain.AssertNotCalled(t, "SubmitLiquidation", mock.Anything, mock.Anything)
	f.positions.AssertCalled(t, "ReleaseClaim", mock.Anything, stale.ID)
}

func TestExecute_RequestedDebtExceedsFreshOutstanding(t *testing.T) {
	f := newFixture()
	stale := underwaterPosition()

	fresh := underwaterPosition()
	fresh.ID = stale.ID
	fresh.CollateralAmount = dec("5.59")
	fresh.DebtAmount = dec("10500")
	fresh.Status = position.PositionLiquidating

	f.positions.On("GetByID", mock.Anything, stale.ID).Return(stale, nil).Once()
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, stale.ID).Return(nil)
	f.positions.On("GetByID", mock.Anything, stale.ID).Return(fresh, nil).Once()
	f.positions.On("ReleaseClaim", mock.Anything, stale.ID).Return(nil)

	// 21000 was the full debt at request time but exceeds what is left
	_, err := f.svc.Execute(context.Background(), ExecuteRequest{
		PositionID:  stale.ID,
		DebtToCover: hfPtr("21000"),
	})

	assert.True(t, errors.Is(err, errors.ErrExceedsDebt))
	f.chain.AssertNotCalled(t, "SubmitLiquidation", mock.Anything, mock.Anything)
	f.positions.AssertCalled(t, "ReleaseClaim", mock.Anything, stale.ID)
}

func TestExecute_InsufficientCollateralReleasesClaim(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()
	pos.CollateralAmount = dec("5")

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
	f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
	f.positions.On("ReleaseClaim", mock.Anything, pos.ID).Return(nil)

	// Full 21000 repayment would seize 8.82 ETH against 5 held
	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

	assert.True(t, errors.Is(err, errors.ErrInsufficientCollateral))
	f.chain.AssertNotCalled(t, "SubmitLiquidation", mock.Anything, mock.Anything)
	f.positions.AssertCalled(t, "ReleaseClaim", mock.Anything, pos.ID)
}

func TestExecute_TransactionFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
	f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
	f.chain.On("SubmitLiquidation", mock.Anything, mock.Anything).
		Return("", errors.New("nonce too low"))
	f.positions.On("ReleaseClaim", mock.Anything, pos.ID).Return(nil)

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

	assert.True(t, errors.Is(err, errors.ErrTransactionFailed))
	f.positions.AssertNotCalled(t, "ApplyLiquidation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.liquidations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.positions.AssertCalled(t, "ReleaseClaim", mock.Anything, pos.ID)
}

func TestExecute_PersistenceFailureAfterSubmissionNeedsReconciliation(t *testing.T) {
	t.Run("position update fails", func(t *testing.T) {
		f := newFixture()
		pos := underwaterPosition()

		f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
		f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
		f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
		f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
		f.chain.On("SubmitLiquidation", mock.Anything, mock.Anything).Return("0xtx3", nil)
		f.positions.On("ApplyLiquidation",
			mock.Anything, pos.ID, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection reset"))

		_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

		assert.True(t, errors.Is(err, errors.ErrReconciliationRequired))
		// The claim must not be released: the chain transaction went through
		f.positions.AssertNotCalled(t, "ReleaseClaim", mock.Anything, mock.Anything)
	})

	t.Run("record insert fails", func(t *testing.T) {
		f := newFixture()
		pos := underwaterPosition()

		f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
		f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
		f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
		f.oracle.On("GetPrices", mock.Anything, mock.Anything).Return(testPrices(), nil)
		f.chain.On("SubmitLiquidation", mock.Anything, mock.Anything).Return("0xtx4", nil)
		f.positions.On("ApplyLiquidation",
			mock.Anything, pos.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.liquidations.On("Create", mock.Anything, mock.Anything).
			Return(errors.New("connection reset"))

		_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

		assert.True(t, errors.Is(err, errors.ErrReconciliationRequired))
		f.positions.AssertNotCalled(t, "ReleaseClaim", mock.Anything, mock.Anything)
	})
}

func TestExecute_PriceFailureReleasesClaim(t *testing.T) {
	f := newFixture()
	pos := underwaterPosition()

	f.positions.On("GetByID", mock.Anything, pos.ID).Return(pos, nil)
	f.pools.On("GetByAddress", mock.Anything, "0xpool").Return(testPool(), nil)
	f.positions.On("ClaimForLiquidation", mock.Anything, pos.ID).Return(nil)
	f.oracle.On("GetPrices", mock.Anything, mock.Anything).
		Return(nil, errors.New("oracle timeout"))
	f.positions.On("ReleaseClaim", mock.Anything, pos.ID).Return(nil)

	_, err := f.svc.Execute(context.Background(), ExecuteRequest{PositionID: pos.ID})

	assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
	f.positions.AssertCalled(t, "ReleaseClaim", mock.Anything, pos.ID)
}

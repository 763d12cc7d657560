package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulcan/internal/domain/liquidation"
)

func TestLiquidationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLiquidationRepository(db)

	liq := &liquidation.Liquidation{
		ID:               uuid.New(),
		PositionID:       uuid.New(),
		Liquidator:       "0xliquidator",
		TxHash:           "0xabc123",
		CollateralSeized: decimal.RequireFromString("8.82"),
		DebtRepaid:       decimal.RequireFromString("21000"),
		Bonus:            decimal.RequireFromString("0.42"),
		CreatedAt:        time.Now(),
	}

	mock.ExpectExec(`INSERT INTO liquidations`).
		WithArgs(liq.ID, liq.PositionID, liq.Liquidator, liq.TxHash,
			liq.CollateralSeized, liq.DebtRepaid, liq.Bonus, liq.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), liq))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLiquidationRepository_GetByPosition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLiquidationRepository(db)

	positionID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "position_id", "liquidator", "tx_hash",
		"collateral_seized", "debt_repaid", "bonus", "created_at",
	}).AddRow(uuid.New(), positionID, "0xliquidator", "0xabc123", "8.82", "21000", "0.42", time.Now())

	mock.ExpectQuery(`SELECT(.|\n)*FROM liquidations(.|\n)*WHERE position_id = \$1`).
		WithArgs(positionID).
		WillReturnRows(rows)

	liqs, err := repo.GetByPosition(context.Background(), positionID)
	require.NoError(t, err)
	require.Len(t, liqs, 1)
	assert.Equal(t, "0xabc123", liqs[0].TxHash)
	assert.True(t, liqs[0].CollateralSeized.Equal(decimal.RequireFromString("8.82")))
}

package postgres

import (
	"context"

	"github.com/google/uuid"

	"vulcan/internal/domain/liquidation"
)

// Compile-time check
var _ liquidation.Repository = (*LiquidationRepository)(nil)

// LiquidationRepository implements liquidation.Repository using sqlx
type LiquidationRepository struct {
	db DBTX
}

// NewLiquidationRepository creates a new liquidation repository
func NewLiquidationRepository(db DBTX) *LiquidationRepository {
	return &LiquidationRepository{db: db}
}

// Create inserts a liquidation record. Records are append-only.
func (r *LiquidationRepository) Create(ctx context.Context, liq *liquidation.Liquidation) error {
	query := `
		INSERT INTO liquidations (
			id, position_id, liquidator, tx_hash,
			collateral_seized, debt_repaid, bonus, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		liq.ID, liq.PositionID, liq.Liquidator, liq.TxHash,
		liq.CollateralSeized, liq.DebtRepaid, liq.Bonus, liq.CreatedAt,
	)

	return err
}

// GetByPosition retrieves all liquidation records for a position,
// most recent first.
func (r *LiquidationRepository) GetByPosition(ctx context.Context, positionID uuid.UUID) ([]*liquidation.Liquidation, error) {
	var liqs []*liquidation.Liquidation

	query := `
		SELECT id, position_id, liquidator, tx_hash,
		       collateral_seized, debt_repaid, bonus, created_at
		FROM liquidations
		WHERE position_id = $1
		ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &liqs, query, positionID)
	if err != nil {
		return nil, err
	}

	return liqs, nil
}

package postgres

import (
	"context"
	"database/sql"

	"vulcan/internal/domain/pool"
	"vulcan/pkg/errors"
)

// Compile-time check
var _ pool.Repository = (*PoolRepository)(nil)

// PoolRepository implements pool.Repository using sqlx
type PoolRepository struct {
	db DBTX
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db DBTX) *PoolRepository {
	return &PoolRepository{db: db}
}

// GetByAddress retrieves a pool by its address
func (r *PoolRepository) GetByAddress(ctx context.Context, address string) (*pool.Pool, error) {
	var p pool.Pool

	query := `
		SELECT address, collateral_asset, debt_asset,
		       liquidation_threshold, liquidation_bonus, active
		FROM pools
		WHERE address = $1`

	err := r.db.GetContext(ctx, &p, query, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrPoolNotFound, "pool %s", address)
		}
		return nil, err
	}

	return &p, nil
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vulcan/internal/domain/position"
	"vulcan/pkg/errors"
)

// Compile-time check
var _ position.Repository = (*PositionRepository)(nil)

// PositionRepository implements position.Repository using sqlx
type PositionRepository struct {
	db DBTX
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `
	id, user_id, pool_address, collateral_asset, debt_asset,
	collateral_amount, debt_amount, health_factor, status, updated_at`

// Create inserts a new position
func (r *PositionRepository) Create(ctx context.Context, p *position.Position) error {
	query := `
		INSERT INTO positions (
			id, user_id, pool_address, collateral_asset, debt_asset,
			collateral_amount, debt_amount, health_factor, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.PoolAddress, p.CollateralAsset, p.DebtAsset,
		p.CollateralAmount, p.DebtAmount, p.HealthFactor, p.Status, p.UpdatedAt,
	)

	return err
}

// GetByID retrieves a position by ID
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*position.Position, error) {
	var p position.Position

	query := `SELECT` + positionColumns + ` FROM positions WHERE id = $1`

	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrPositionNotFound, "position %s", id)
		}
		return nil, err
	}

	return &p, nil
}

// FindAllActive retrieves all active positions, worst health factor first.
// Infinite health factors (no debt) sort last.
func (r *PositionRepository) FindAllActive(ctx context.Context) ([]*position.Position, error) {
	var positions []*position.Position

	query := `
		SELECT` + positionColumns + `
		FROM positions
		WHERE status = 'active'
		ORDER BY health_factor ASC NULLS LAST`

	err := r.db.SelectContext(ctx, &positions, query)
	if err != nil {
		return nil, err
	}

	return positions, nil
}

// FindAllLiquidatable retrieves active positions with stored health factor
// strictly below 1.0, most insolvent first.
func (r *PositionRepository) FindAllLiquidatable(ctx context.Context) ([]*position.Position, error) {
	var positions []*position.Position

	query := `
		SELECT` + positionColumns + `
		FROM positions
		WHERE status = 'active' AND health_factor < 1
		ORDER BY health_factor ASC`

	err := r.db.SelectContext(ctx, &positions, query)
	if err != nil {
		return nil, err
	}

	return positions, nil
}

// UpdateHealthFactor persists a refreshed health factor for a position.
// A nil value stores NULL, meaning infinite (no debt).
func (r *PositionRepository) UpdateHealthFactor(ctx context.Context, id uuid.UUID, hf *decimal.Decimal) error {
	query := `
		UPDATE positions SET
			health_factor = $2,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, hf)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrPositionNotFound, "position %s", id)
	}

	return nil
}

// ClaimForLiquidation moves a position from active to liquidating.
// The WHERE clause on status makes this a compare-and-swap: of any number
// of concurrent claimers exactly one sees a row updated, the rest get
// ErrPositionNotActive.
func (r *PositionRepository) ClaimForLiquidation(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE positions SET
			status = 'liquidating',
			updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrPositionNotActive, "position %s", id)
	}

	return nil
}

// ReleaseClaim returns a claimed position to active after a failed
// chain submission.
func (r *PositionRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE positions SET
			status = 'active',
			updated_at = NOW()
		WHERE id = $1 AND status = 'liquidating'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrInternal, "release claim: position %s not in liquidating state", id)
	}

	return nil
}

// ApplyLiquidation writes the post-seizure amounts for a claimed position.
// A fully liquidated position moves to its terminal status with the health
// factor cleared; a partially liquidated one returns to active and keeps
// its stored health factor until the next monitor sweep refreshes it.
func (r *PositionRepository) ApplyLiquidation(ctx context.Context, id uuid.UUID, remainingCollateral, remainingDebt decimal.Decimal, liquidated bool) error {
	status := position.PositionActive
	if liquidated {
		status = position.PositionLiquidated
	}

	query := `
		UPDATE positions SET
			collateral_amount = $2,
			debt_amount = $3,
			status = $4,
			health_factor = CASE WHEN $5 THEN NULL ELSE health_factor END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'liquidating'`

	result, err := r.db.ExecContext(ctx, query, id, remainingCollateral, remainingDebt, status, liquidated)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrInternal, "apply liquidation: position %s not in liquidating state", id)
	}

	return nil
}

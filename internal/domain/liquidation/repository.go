package liquidation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for liquidation record access
type Repository interface {
	Create(ctx context.Context, liq *Liquidation) error
	GetByPosition(ctx context.Context, positionID uuid.UUID) ([]*Liquidation, error)
}

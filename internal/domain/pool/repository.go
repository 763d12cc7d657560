package pool

import "context"

// Repository defines the interface for pool data access
type Repository interface {
	GetByAddress(ctx context.Context, address string) (*Pool, error)
}

package redis

import (
	"context"
	"time"

	"vulcan/internal/services/monitor"
)

const snapshotKeyPrefix = "risk:snapshot:"

// SnapshotCache keeps the latest per-position risk snapshot in Redis so
// dashboards read current state without hitting the position store.
type SnapshotCache struct {
	client *Client
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache with the given entry TTL.
func NewSnapshotCache(client *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

var _ monitor.SnapshotCache = (*SnapshotCache)(nil)

// SetSnapshot stores one position's risk snapshot
func (c *SnapshotCache) SetSnapshot(ctx context.Context, snap monitor.RiskSnapshot) error {
	return c.client.Set(ctx, snapshotKeyPrefix+snap.PositionID.String(), snap, c.ttl)
}

// GetSnapshot reads one position's risk snapshot
func (c *SnapshotCache) GetSnapshot(ctx context.Context, positionID string) (*monitor.RiskSnapshot, error) {
	var snap monitor.RiskSnapshot
	if err := c.client.Get(ctx, snapshotKeyPrefix+positionID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

package oracle

import (
	"context"

	"github.com/shopspring/decimal"

	"vulcan/internal/adapters/redis"
	domain "vulcan/internal/domain/oracle"
	"vulcan/pkg/errors"
)

const priceKeyPrefix = "price:"

// RedisOracle reads asset prices from Redis, where an external feed
// publishes them under price:<symbol>. A missing or unparsable symbol
// fails the whole lookup: callers must never see a partial snapshot.
type RedisOracle struct {
	client *redis.Client
}

// NewRedisOracle creates a new Redis-backed price oracle
func NewRedisOracle(client *redis.Client) *RedisOracle {
	return &RedisOracle{client: client}
}

var _ domain.PriceOracle = (*RedisOracle)(nil)

// GetPrices fetches prices for all given symbols in one round trip.
func (o *RedisOracle) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = priceKeyPrefix + sym
	}

	values, err := o.client.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrPriceUnavailable, "price feed read: %v", err)
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			return nil, errors.Wrapf(errors.ErrPriceUnavailable, "no price for %s", symbols[i])
		}
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrPriceUnavailable, "bad price for %s: %v", symbols[i], err)
		}
		if !price.IsPositive() {
			return nil, errors.Wrapf(errors.ErrPriceUnavailable, "non-positive price for %s", symbols[i])
		}
		prices[symbols[i]] = price
	}

	return prices, nil
}

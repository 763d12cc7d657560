package chain

import (
	"context"

	"golang.org/x/time/rate"

	domain "vulcan/internal/domain/chain"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// RateLimitedExecutor wraps a TransactionExecutor with a submission rate
// limit so a burst of liquidatable positions cannot flood the RPC node.
type RateLimitedExecutor struct {
	inner   domain.TransactionExecutor
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewRateLimitedExecutor wraps the given executor. ratePerSec is the
// sustained submission rate, burst the momentary allowance.
func NewRateLimitedExecutor(inner domain.TransactionExecutor, ratePerSec float64, burst int) *RateLimitedExecutor {
	return &RateLimitedExecutor{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		log:     logger.Get().With("component", "chain_rate_limiter"),
	}
}

var _ domain.TransactionExecutor = (*RateLimitedExecutor)(nil)

// SubmitLiquidation waits for a rate token, then delegates.
func (e *RateLimitedExecutor) SubmitLiquidation(ctx context.Context, intent domain.LiquidationIntent) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", errors.Wrapf(errors.ErrTimeout, "rate limit wait: %v", err)
	}
	return e.inner.SubmitLiquidation(ctx, intent)
}

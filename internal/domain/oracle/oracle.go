package oracle

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle resolves current USD prices for a set of asset symbols.
//
// The call fails wholesale if any requested symbol cannot be resolved;
// callers treat that as ErrPriceUnavailable and retry on their own
// schedule. The engine batches all symbols it needs into one call per
// sweep so the number of oracle round trips stays constant regardless
// of how many positions are open.
type PriceOracle interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

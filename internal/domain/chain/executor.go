package chain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LiquidationIntent is the payload submitted to the chain client.
type LiquidationIntent struct {
	PoolAddress string
	PositionID  uuid.UUID
	DebtToCover decimal.Decimal
	Liquidator  string
}

// TransactionExecutor submits a liquidation call on-chain and returns the
// transaction hash once the submission is accepted by the node.
//
// Acceptance means at-least-once submission, not finality. Signing,
// broadcast, gas strategy and MEV concerns all live behind this interface.
type TransactionExecutor interface {
	SubmitLiquidation(ctx context.Context, intent LiquidationIntent) (string, error)
}

package chain

import (
	"context"

	"github.com/google/uuid"

	"vulcan/internal/adapters/kafka"
	domain "vulcan/internal/domain/chain"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// KafkaSubmitter hands liquidation intents to the signing service over the
// intent queue. The returned reference is the intent ID; the signer
// attaches the final on-chain hash when it broadcasts.
type KafkaSubmitter struct {
	producer *kafka.Producer
	log      *logger.Logger
}

type intentMessage struct {
	IntentID    string `json:"intent_id"`
	PoolAddress string `json:"pool_address"`
	PositionID  string `json:"position_id"`
	DebtToCover string `json:"debt_to_cover"`
	Liquidator  string `json:"liquidator"`
}

// NewKafkaSubmitter creates a new intent-queue submitter
func NewKafkaSubmitter(producer *kafka.Producer) *KafkaSubmitter {
	return &KafkaSubmitter{
		producer: producer,
		log:      logger.Get().With("component", "chain_submitter"),
	}
}

var _ domain.TransactionExecutor = (*KafkaSubmitter)(nil)

// SubmitLiquidation enqueues one liquidation intent
func (s *KafkaSubmitter) SubmitLiquidation(ctx context.Context, intent domain.LiquidationIntent) (string, error) {
	intentID := uuid.New().String()

	msg := intentMessage{
		IntentID:    intentID,
		PoolAddress: intent.PoolAddress,
		PositionID:  intent.PositionID.String(),
		DebtToCover: intent.DebtToCover.String(),
		Liquidator:  intent.Liquidator,
	}

	if err := s.producer.Publish(ctx, kafka.TopicLiquidation, intent.PositionID.String(), msg); err != nil {
		return "", errors.Wrapf(errors.ErrTransactionFailed, "enqueue intent %s: %v", intentID, err)
	}

	s.log.Infof("liquidation intent %s enqueued for position %s", intentID, intent.PositionID)
	return intentID, nil
}

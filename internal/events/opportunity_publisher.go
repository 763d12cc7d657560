package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"vulcan/internal/adapters/kafka"
	"vulcan/internal/services/scanner"
)

// OpportunityPublisher pushes each scan's ranked liquidation opportunities
// onto Kafka for external keepers and dashboards. One scan becomes one
// batch, keyed by position ID.
type OpportunityPublisher struct {
	producer *kafka.Producer
}

// NewOpportunityPublisher creates a new opportunity publisher
func NewOpportunityPublisher(producer *kafka.Producer) *OpportunityPublisher {
	return &OpportunityPublisher{producer: producer}
}

// ConsumeOpportunities publishes the result of one scan
func (p *OpportunityPublisher) ConsumeOpportunities(ctx context.Context, opportunities []scanner.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	messages := make([]kafkago.Message, 0, len(opportunities))
	for _, opp := range opportunities {
		data, err := json.Marshal(opp)
		if err != nil {
			return err
		}
		messages = append(messages, kafkago.Message{
			Key:   []byte(opp.PositionID.String()),
			Value: data,
		})
	}

	return p.producer.PublishBatch(ctx, kafka.TopicOpportunities, messages)
}

package events

import (
	"context"

	"vulcan/internal/adapters/kafka"
	"vulcan/internal/domain/alert"
)

// AlertPublisher delivers risk alerts to the Kafka alert bus. Messages are
// keyed by position ID so all alerts for one position land on the same
// partition in order.
type AlertPublisher struct {
	producer *kafka.Producer
}

// NewAlertPublisher creates a new alert publisher
func NewAlertPublisher(producer *kafka.Producer) *AlertPublisher {
	return &AlertPublisher{producer: producer}
}

var _ alert.Sink = (*AlertPublisher)(nil)

// Emit publishes one alert event
func (p *AlertPublisher) Emit(ctx context.Context, event alert.Event) error {
	return p.producer.Publish(ctx, kafka.TopicRiskAlert, event.PositionID.String(), event)
}

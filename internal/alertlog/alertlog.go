package alertlog

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"vulcan/internal/adapters/clickhouse"
	"vulcan/internal/adapters/kafka"
	"vulcan/internal/domain/alert"
	"vulcan/internal/services/scanner"
	chbatch "vulcan/pkg/clickhouse"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

// AlertRow is one alert as stored in ClickHouse.
type AlertRow struct {
	PositionID   string    `ch:"position_id"`
	Severity     string    `ch:"severity"`
	HealthFactor string    `ch:"health_factor"`
	Pool         string    `ch:"pool"`
	At           time.Time `ch:"at"`
}

// OpportunityRow is one scan result as stored in ClickHouse.
type OpportunityRow struct {
	PositionID      string    `ch:"position_id"`
	PoolAddress     string    `ch:"pool_address"`
	HealthFactor    string    `ch:"health_factor"`
	CollateralValue string    `ch:"collateral_value"`
	EstimatedProfit string    `ch:"estimated_profit"`
	At              time.Time `ch:"at"`
}

// History persists the alert and scan streams into ClickHouse for offline
// analysis. Inserts are batched; a dropped batch loses history rows only,
// never operational state.
type History struct {
	client        *clickhouse.Client
	alerts        *chbatch.BatchWriter
	opportunities *chbatch.BatchWriter
	log           *logger.Logger
}

// NewHistory creates the history writer and its batch buffers.
func NewHistory(client *clickhouse.Client) *History {
	h := &History{
		client: client,
		log:    logger.Get().With("component", "alert_history"),
	}

	h.alerts = chbatch.NewBatchWriter(chbatch.BatchWriterConfig{
		Conn:      client.Conn(),
		TableName: "risk_alerts",
		FlushFunc: h.flushAlerts,
	})
	h.opportunities = chbatch.NewBatchWriter(chbatch.BatchWriterConfig{
		Conn:      client.Conn(),
		TableName: "liquidation_opportunities",
		FlushFunc: h.flushOpportunities,
	})

	return h
}

// Start begins the background flush tickers
func (h *History) Start(ctx context.Context) {
	h.alerts.Start(ctx)
	h.opportunities.Start(ctx)
}

// Stop flushes and shuts down both writers
func (h *History) Stop(ctx context.Context) error {
	if err := h.alerts.Stop(ctx); err != nil {
		return err
	}
	return h.opportunities.Stop(ctx)
}

var _ alert.Sink = (*History)(nil)

// Emit buffers one alert row
func (h *History) Emit(ctx context.Context, event alert.Event) error {
	hf := ""
	if event.HealthFactor != nil {
		hf = event.HealthFactor.String()
	}

	return h.alerts.Add(ctx, &AlertRow{
		PositionID:   event.PositionID.String(),
		Severity:     event.Severity.String(),
		HealthFactor: hf,
		Pool:         event.Metadata["pool"],
		At:           event.At,
	})
}

// ConsumeOpportunities buffers one scan's ranked opportunities
func (h *History) ConsumeOpportunities(ctx context.Context, opportunities []scanner.Opportunity) error {
	now := time.Now()
	for _, opp := range opportunities {
		row := &OpportunityRow{
			PositionID:      opp.PositionID.String(),
			PoolAddress:     opp.PoolAddress,
			HealthFactor:    opp.HealthFactor.String(),
			CollateralValue: opp.CollateralValue.String(),
			EstimatedProfit: opp.EstimatedProfit.String(),
			At:              now,
		}
		if err := h.opportunities.Add(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// RunConsumer tails the alert bus into the history. Used when alerts are
// produced by other instances and this one owns the archive.
func (h *History) RunConsumer(ctx context.Context, consumer *kafka.Consumer) error {
	return consumer.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
		var event alert.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return errors.Wrapf(errors.ErrInvalidInput, "decode alert event: %v", err)
		}
		return h.Emit(ctx, event)
	})
}

func (h *History) flushAlerts(ctx context.Context, batch []interface{}) error {
	return h.insertBatch(ctx, "INSERT INTO risk_alerts", batch)
}

func (h *History) flushOpportunities(ctx context.Context, batch []interface{}) error {
	return h.insertBatch(ctx, "INSERT INTO liquidation_opportunities", batch)
}

func (h *History) insertBatch(ctx context.Context, query string, rows []interface{}) error {
	batch, err := h.client.Conn().PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := batch.AppendStruct(row); err != nil {
			return err
		}
	}

	return batch.Send()
}

package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"vulcan/pkg/logger"
)

// CustomCollector collects position and liquidation counts from postgres
// on each scrape, so dashboards see store-level truth rather than
// process-local counters.
type CustomCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	positionsByStatus *prometheus.Desc
	liquidations24h   *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB) *CustomCollector {
	return &CustomCollector{
		log:      log,
		postgres: postgres,

		positionsByStatus: prometheus.NewDesc(
			"vulcan_positions_count",
			"Number of positions by status",
			[]string{"status"}, nil,
		),
		liquidations24h: prometheus.NewDesc(
			"vulcan_liquidations_24h",
			"Liquidation records created in the last 24h",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.positionsByStatus
	ch <- c.liquidations24h
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectPositions(ctx, ch)
	c.collectLiquidations(ctx, ch)
}

func (c *CustomCollector) collectPositions(ctx context.Context, ch chan<- prometheus.Metric) {
	rows := []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}{}

	query := `SELECT status, COUNT(*) AS count FROM positions GROUP BY status`
	if err := c.postgres.SelectContext(ctx, &rows, query); err != nil {
		c.log.Warnf("metrics: failed to count positions: %v", err)
		return
	}

	for _, row := range rows {
		ch <- prometheus.MustNewConstMetric(
			c.positionsByStatus,
			prometheus.GaugeValue,
			float64(row.Count),
			row.Status,
		)
	}
}

func (c *CustomCollector) collectLiquidations(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int64

	query := `SELECT COUNT(*) FROM liquidations WHERE created_at > NOW() - INTERVAL '24 hours'`
	if err := c.postgres.GetContext(ctx, &count, query); err != nil {
		c.log.Warnf("metrics: failed to count liquidations: %v", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.liquidations24h,
		prometheus.GaugeValue,
		float64(count),
	)
}

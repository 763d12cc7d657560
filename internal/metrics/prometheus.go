package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulcan_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vulcan_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	// Monitor metrics
	MonitorTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulcan_monitor_ticks_total",
			Help: "Total number of monitor sweeps",
		},
		[]string{"status"}, // status: success|price_unavailable|error
	)

	MonitorPositionsChecked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulcan_monitor_positions_checked_total",
			Help: "Total number of positions evaluated across all sweeps",
		},
	)

	MonitorAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulcan_monitor_alerts_total",
			Help: "Total number of alerts raised by severity tier",
		},
		[]string{"severity"},
	)

	MonitorPositionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulcan_monitor_position_errors_total",
			Help: "Total number of per-position evaluation failures",
		},
	)

	// Scanner metrics
	ScanOpportunities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vulcan_scan_opportunities_count",
			Help: "Number of liquidation opportunities found by the last scan",
		},
	)

	// Liquidation metrics
	LiquidationsExecuted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulcan_liquidations_executed_total",
			Help: "Total number of accepted liquidation submissions",
		},
	)

	LiquidationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulcan_liquidations_rejected_total",
			Help: "Total number of rejected liquidation attempts",
		},
		[]string{"reason"},
	)

	ReconciliationsRequired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulcan_reconciliations_required_total",
			Help: "Liquidations whose record write failed after the position was updated",
		},
	)

	// Oracle metrics
	OracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulcan_oracle_calls_total",
			Help: "Total number of price oracle batch calls",
		},
		[]string{"status"}, // status: success|error
	)

	// Alert sink metrics
	AlertSinkFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulcan_alert_sink_failures_total",
			Help: "Alert emissions that failed and were dropped",
		},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)

	prometheus.MustRegister(MonitorTicks)
	prometheus.MustRegister(MonitorPositionsChecked)
	prometheus.MustRegister(MonitorAlerts)
	prometheus.MustRegister(MonitorPositionErrors)

	prometheus.MustRegister(ScanOpportunities)

	prometheus.MustRegister(LiquidationsExecuted)
	prometheus.MustRegister(LiquidationsRejected)
	prometheus.MustRegister(ReconciliationsRequired)

	prometheus.MustRegister(OracleCalls)
	prometheus.MustRegister(AlertSinkFailures)
}

// RegisterCollector registers an additional collector with the default
// registry
func RegisterCollector(c prometheus.Collector) {
	prometheus.MustRegister(c)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"vulcan/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Monitor       MonitorConfig
	Scanner       ScannerConfig
	Executor      ExecutorConfig
	Chain         ChainConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"vulcan"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"risk"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`

	SnapshotTTL time.Duration `envconfig:"REDIS_SNAPSHOT_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"vulcan"`

	// ConsumeAlerts tails the alert topic into the ClickHouse history.
	// Enabled on the archiving instance only.
	ConsumeAlerts bool `envconfig:"KAFKA_CONSUME_ALERTS" default:"false"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// MonitorConfig contains the position monitor sweep settings
type MonitorConfig struct {
	Interval   time.Duration `envconfig:"MONITOR_INTERVAL" default:"30s"`
	TickBudget time.Duration `envconfig:"MONITOR_TICK_BUDGET" default:"25s"`
	Enabled    bool          `envconfig:"MONITOR_ENABLED" default:"true"`

	// Severity tier boundaries. Warning must stay above critical;
	// the liquidatable boundary is fixed at 1.0 and not configurable.
	WarningThreshold  string `envconfig:"MONITOR_WARNING_THRESHOLD" default:"1.2"`
	CriticalThreshold string `envconfig:"MONITOR_CRITICAL_THRESHOLD" default:"1.05"`
}

type ScannerConfig struct {
	Interval time.Duration `envconfig:"SCANNER_INTERVAL" default:"15s"`
	Enabled  bool          `envconfig:"SCANNER_ENABLED" default:"true"`
}

type ExecutorConfig struct {
	// DustThreshold is the remaining debt below which a partial
	// liquidation closes the position outright.
	DustThreshold string `envconfig:"EXECUTOR_DUST_THRESHOLD" default:"0.000001"`

	// AutoLiquidate turns scan results into liquidation attempts.
	AutoLiquidate      bool   `envconfig:"EXECUTOR_AUTO_LIQUIDATE" default:"false"`
	LiquidatorAddress  string `envconfig:"EXECUTOR_LIQUIDATOR_ADDRESS"`
	MaxAttemptsPerScan int    `envconfig:"EXECUTOR_MAX_ATTEMPTS_PER_SCAN" default:"5"`
}

// ChainConfig bounds how fast liquidation transactions are submitted.
type ChainConfig struct {
	SubmitRatePerSec float64 `envconfig:"CHAIN_SUBMIT_RATE_PER_SEC" default:"2"`
	SubmitBurst      int     `envconfig:"CHAIN_SUBMIT_BURST" default:"4"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}

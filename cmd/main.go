package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"vulcan/internal/adapters/chain"
	"vulcan/internal/adapters/clickhouse"
	"vulcan/internal/adapters/config"
	"vulcan/internal/adapters/errors/noop"
	"vulcan/internal/adapters/errors/sentry"
	"vulcan/internal/adapters/kafka"
	"vulcan/internal/adapters/oracle"
	"vulcan/internal/adapters/postgres"
	"vulcan/internal/adapters/redis"
	"vulcan/internal/alertlog"
	domainalert "vulcan/internal/domain/alert"
	domainchain "vulcan/internal/domain/chain"
	"vulcan/internal/events"
	"vulcan/internal/metrics"
	repo "vulcan/internal/repository/postgres"
	"vulcan/internal/risk"
	"vulcan/internal/services/executor"
	"vulcan/internal/services/monitor"
	"vulcan/internal/services/scanner"
	"vulcan/internal/workers"
	"vulcan/pkg/errors"
	"vulcan/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	metrics.RegisterCollector(metrics.NewCustomCollector(log, pgClient.DB()))

	healthChecks := map[string]func(context.Context) error{
		"postgres": pgClient.Health,
		"redis":    redisClient.Health,
	}

	// Stores
	positionRepo := repo.NewPositionRepository(pgClient.DB())
	poolRepo := repo.NewPoolRepository(pgClient.DB())
	liquidationRepo := repo.NewLiquidationRepository(pgClient.DB())

	priceOracle := oracle.NewRedisOracle(redisClient)
	snapshotCache := redis.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Alert delivery and chain submission
	var producer *kafka.Producer
	sinks := []domainalert.Sink{events.NewLogSink()}
	scanConsumers := []workers.ScanConsumer{}
	var chainExecutor domainchain.TransactionExecutor

	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()

		sinks = append(sinks, events.NewAlertPublisher(producer))
		scanConsumers = append(scanConsumers, events.NewOpportunityPublisher(producer))
		chainExecutor = chain.NewRateLimitedExecutor(
			chain.NewKafkaSubmitter(producer),
			cfg.Chain.SubmitRatePerSec,
			cfg.Chain.SubmitBurst,
		)
	}

	var history *alertlog.History
	if cfg.ClickHouse.Enabled {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer chClient.Close()
		healthChecks["clickhouse"] = chClient.Health

		history = alertlog.NewHistory(chClient)
		history.Start(ctx)
		sinks = append(sinks, history)
		scanConsumers = append(scanConsumers, history)

		if cfg.Kafka.Enabled && cfg.Kafka.ConsumeAlerts {
			consumer := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: cfg.Kafka.GroupID,
				Topic:   kafka.TopicRiskAlert,
			})
			defer consumer.Close()

			go func() {
				if err := history.RunConsumer(ctx, consumer); err != nil && ctx.Err() == nil {
					log.Errorf("Alert consumer stopped: %v", err)
				}
			}()
		}
	}

	// Services
	monitorSvc := monitor.NewService(positionRepo, poolRepo, priceOracle,
		events.NewFanoutSink(sinks...), snapshotCache, monitor.Config{
			Thresholds: severityThresholds(cfg.Monitor, log),
			TickBudget: cfg.Monitor.TickBudget,
		})

	scannerSvc := scanner.NewService(positionRepo, poolRepo, priceOracle)

	if cfg.Executor.AutoLiquidate {
		if chainExecutor == nil {
			log.Fatal("Auto-liquidation requires Kafka for chain submission")
		}
		executorSvc := executor.NewService(positionRepo, poolRepo, liquidationRepo,
			priceOracle, chainExecutor, errorTracker, executor.Config{
				DustThreshold: mustDecimal(cfg.Executor.DustThreshold, log),
			})
		scanConsumers = append(scanConsumers,
			executor.NewAutoLiquidator(executorSvc, cfg.Executor.LiquidatorAddress, cfg.Executor.MaxAttemptsPerScan))
	}

	// Workers
	monitorWorker := workers.NewMonitorWorker(monitorSvc, cfg.Monitor.Interval, cfg.Monitor.Enabled)
	scannerWorker := workers.NewScannerWorker(scannerSvc,
		workers.NewMultiScanConsumer(scanConsumers...), cfg.Scanner.Interval, cfg.Scanner.Enabled)

	registry := workers.NewRegistry()
	for _, w := range []workers.WorkerWithHealth{monitorWorker, scannerWorker} {
		if err := registry.Register(w); err != nil {
			log.Fatalf("Failed to register worker %s: %v", w.Name(), err)
		}
	}
	go watchWorkerHealth(ctx, registry, log)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(monitorWorker)
	scheduler.RegisterWorker(scannerWorker)

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr, healthChecks, log)
	}

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, errorTracker, log)

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}
	if history != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := history.Stop(stopCtx); err != nil {
			log.Warnf("History shutdown: %v", err)
		}
	}
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func severityThresholds(cfg config.MonitorConfig, log *logger.Logger) risk.Thresholds {
	t := risk.Thresholds{
		Warning:  mustDecimal(cfg.WarningThreshold, log),
		Critical: mustDecimal(cfg.CriticalThreshold, log),
	}
	if t.Critical.GreaterThanOrEqual(t.Warning) {
		log.Fatalf("Critical threshold %s must be below warning threshold %s", t.Critical, t.Warning)
	}
	return t
}

func mustDecimal(s string, log *logger.Logger) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("Invalid decimal in config: %q", s)
	}
	return d
}

// watchWorkerHealth periodically reports workers that stopped making
// progress or fail most of their runs
func watchWorkerHealth(ctx context.Context, registry *workers.Registry, log *logger.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range registry.GetUnhealthyWorkers(10 * time.Minute) {
				w, ok := registry.Get(name)
				if !ok {
					continue
				}
				h := w.Health()
				log.Warnf("Worker %s unhealthy: last_run=%v errors=%d/%d last_error=%v",
					name, h.LastRun, h.ErrorCount, h.RunCount, h.LastError)
			}
		}
	}
}

// startMetricsServer exposes /metrics and /healthz on their own listener
func startMetricsServer(addr string, healthChecks map[string]func(context.Context) error, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for name, check := range healthChecks {
			if err := check(ctx); err != nil {
				log.Warnf("Health check %s failed: %v", name, err)
				http.Error(w, name+" unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go func() {
		log.Infof("Metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}
}

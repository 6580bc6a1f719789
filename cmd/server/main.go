package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"partnerd/internal/eventlog"
	outboxworker "partnerd/internal/eventlog/worker"
	"partnerd/internal/ledger"
	ledgerhandler "partnerd/internal/ledger/handler"
	"partnerd/internal/platform/config"
	"partnerd/internal/platform/httpserver"
	"partnerd/internal/platform/kafka/producer"
	"partnerd/internal/platform/logger"
	"partnerd/internal/platform/metrics"
	"partnerd/internal/platform/middleware"
	"partnerd/internal/platform/postgres"
	platformredis "partnerd/internal/platform/redis"
	"partnerd/internal/registry"
	"partnerd/internal/registry/cache"
	registryhandler "partnerd/internal/registry/handler"
	httptransport "partnerd/internal/transport/http"
	txrunner "partnerd/pkg/platform/tx"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages. Without a Postgres
// DSN everything runs in memory; Redis and Kafka are likewise optional.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var (
		eventStore    eventlog.Store
		outboxStore   eventlog.OutboxStore
		registryStore registry.Store
		ledgerStore   ledger.Store
		vault         ledger.Vault
		runner        txrunner.Runner
	)
	if db != nil {
		pgEvents := eventlog.NewPostgres(db)
		eventStore = pgEvents
		outboxStore = pgEvents
		registryStore = registry.NewPostgres(db)
		ledgerStore = ledger.NewPostgres(db)
		vault = ledger.NewPostgresVault(db)
		runner = txrunner.NewSQL(db)
	} else {
		memOutbox := eventlog.NewInMemoryOutbox()
		eventStore = eventlog.NewInMemoryStore(memOutbox)
		outboxStore = memOutbox
		registryStore = registry.NewInMemoryStore()
		ledgerStore = ledger.NewInMemoryStore()
		vault = ledger.NewInMemoryVault()
		runner = txrunner.NewNoop()
	}

	if redisClient != nil {
		registryStore = cache.New(registryStore, redisClient.Client, cfg.Redis.ProfileTTL, log)
	}

	events := eventlog.NewPublisher(eventStore)
	registryService := registry.NewService(registryStore, events, runner, m, log)
	ledgerService := ledger.NewService(ledgerStore, vault, events, registryService, runner, m, log)

	var sink producer.Sink = producer.NoopSink{}
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(producer.Config{Brokers: cfg.Kafka.Brokers}, log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		sink = kafkaProducer
	}
	worker := outboxworker.New(outboxStore, sink,
		outboxworker.WithTopic(cfg.Kafka.Topic),
		outboxworker.WithBatchSize(cfg.Kafka.BatchSize),
		outboxworker.WithPollInterval(cfg.Kafka.PollInterval),
		outboxworker.WithMetrics(m),
		outboxworker.WithLogger(log),
	)

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)
	router := httptransport.NewRouter(
		registryhandler.New(registryService, log),
		ledgerhandler.New(ledgerService, log),
		validator,
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker.Start()
	log.Info("starting partnerd", "addr", cfg.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		worker.Stop()
		closeQuietly(log, sink.Close, "kafka producer")
		if redisClient != nil {
			closeQuietly(log, redisClient.Close, "redis client")
		}
		if db != nil {
			closeQuietly(log, db.Close, "postgres pool")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("partnerd stopped")
}

func closeQuietly(log *slog.Logger, fn func() error, what string) {
	if err := fn(); err != nil {
		log.Warn("close failed", "component", what, "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/inquiry-dispatch/internal/config"
	"github.com/kursadbilgin/inquiry-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/inquiry-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/inquiry-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/provider"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/render"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"github.com/kursadbilgin/inquiry-dispatch/internal/service"
	"github.com/kursadbilgin/inquiry-dispatch/internal/templates"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const metricsAddr = ":9100"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.PoolConfig{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}
	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL, queue.Topology{
		RetryDelayMs:  int32(cfg.RetryDelayMs),
		MaxDeliveries: cfg.MaxDeliveries,
	})
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	ledger, err := newLedger(cfg.LedgerBackend, db, rdb)
	if err != nil {
		logger.Fatal("ledger initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	sender, err := provider.NewEmailAPI(cfg.ProviderURL, cfg.ProviderAPIKey)
	if err != nil {
		logger.Fatal("email provider initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	renderer := render.New(templates.NewResolver(repository.NewGormTemplateRepo(db)))

	coordinator, err := service.NewCoordinator(ledger, renderer, sender, limiter, logger)
	if err != nil {
		logger.Fatal("coordinator init failed", zap.Error(err))
	}
	coordinator.SetMetrics(metrics)

	settings, err := service.NewSettingsService(repository.NewGormSettingsRepo(db), cfg.DefaultSettings())
	if err != nil {
		logger.Fatal("settings service init failed", zap.Error(err))
	}

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)
	worker, err := service.NewWorkerService(
		repository.NewGormInquiryRepo(db),
		settings,
		coordinator,
		consumer,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker service init failed", zap.Error(err))
	}

	scanner, err := service.NewRedeliveryScanner(
		ledger,
		queue.NewRabbitMQPublisher(rabbit),
		cfg.RedeliveryScanInterval,
		cfg.RedeliveryStaleAfter,
		cfg.MaxDeliveries,
		logger,
	)
	if err != nil {
		logger.Fatal("redelivery scanner init failed", zap.Error(err))
	}
	scanner.SetMetrics(metrics)

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}

	logger.Info("inquiry-dispatch worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.String("ledgerBackend", cfg.LedgerBackend),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Start(gctx) })
	g.Go(func() error { return scanner.Start(gctx) })
	g.Go(func() error {
		err := metricsServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		return metricsServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", zap.Error(err))
	}
	logger.Info("inquiry-dispatch worker stopped")
}

func newLedger(backend string, db *gorm.DB, rdb *goredis.Client) (repository.LedgerRepository, error) {
	switch backend {
	case config.LedgerBackendPostgres:
		return repository.NewGormLedgerRepo(db), nil
	case config.LedgerBackendRedis:
		store, err := infraredis.NewLedgerStore(rdb)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.New("unknown ledger backend " + backend)
	}
}

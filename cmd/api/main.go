package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/inquiry-dispatch/internal/config"
	"github.com/kursadbilgin/inquiry-dispatch/internal/handler"
	"github.com/kursadbilgin/inquiry-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/inquiry-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/inquiry-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/render"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"github.com/kursadbilgin/inquiry-dispatch/internal/service"
	"github.com/kursadbilgin/inquiry-dispatch/internal/templates"
	"github.com/kursadbilgin/inquiry-dispatch/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

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

	metrics := observability.NewMetrics()
	publisher := queue.NewRabbitMQPublisher(rabbit)
	templateRepo := repository.NewGormTemplateRepo(db)
	renderer := render.New(templates.NewResolver(templateRepo))

	inquiries, err := service.NewInquiryService(repository.NewGormInquiryRepo(db), ledger, publisher, logger)
	if err != nil {
		logger.Fatal("inquiry service init failed", zap.Error(err))
	}
	settings, err := service.NewSettingsService(repository.NewGormSettingsRepo(db), cfg.DefaultSettings())
	if err != nil {
		logger.Fatal("settings service init failed", zap.Error(err))
	}
	templateSvc, err := service.NewTemplateService(templateRepo)
	if err != nil {
		logger.Fatal("template service init failed", zap.Error(err))
	}
	preview, err := service.NewPreviewService(renderer)
	if err != nil {
		logger.Fatal("preview service init failed", zap.Error(err))
	}
	preview.SetMetrics(metrics)
	documents, err := service.NewDocumentService(renderer, settings)
	if err != nil {
		logger.Fatal("document service init failed", zap.Error(err))
	}
	documents.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb, rabbit)
	handler.RegisterMetricsRoute(app, metrics.Handler())
	if err := handler.RegisterInquiryRoutes(app, inquiries); err != nil {
		logger.Fatal("inquiry routes init failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(app, templateSvc, preview); err != nil {
		logger.Fatal("template routes init failed", zap.Error(err))
	}
	if err := handler.RegisterSettingsRoutes(app, settings); err != nil {
		logger.Fatal("settings routes init failed", zap.Error(err))
	}
	if err := handler.RegisterDocumentRoutes(app, documents); err != nil {
		logger.Fatal("document routes init failed", zap.Error(err))
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("inquiry-dispatch api started",
		zap.Int("port", cfg.APIPort),
		zap.String("ledgerBackend", cfg.LedgerBackend),
	)

	select {
	case err := <-listenErr:
		if err != nil {
			logger.Error("api server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down api")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
	}
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

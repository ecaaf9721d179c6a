package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JiminSongSoftware/gagyo-push/internal/config"
	"github.com/JiminSongSoftware/gagyo-push/internal/handler"
	"github.com/JiminSongSoftware/gagyo-push/internal/infra/postgresql"
	"github.com/JiminSongSoftware/gagyo-push/internal/infra/postgresql/migrations"
	infraredis "github.com/JiminSongSoftware/gagyo-push/internal/infra/redis"
	"github.com/JiminSongSoftware/gagyo-push/internal/observability"
	"github.com/JiminSongSoftware/gagyo-push/internal/provider"
	"github.com/JiminSongSoftware/gagyo-push/internal/queue"
	"github.com/JiminSongSoftware/gagyo-push/internal/ratelimit"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
	"github.com/JiminSongSoftware/gagyo-push/internal/service"
	"github.com/JiminSongSoftware/gagyo-push/internal/transport"
	"github.com/JiminSongSoftware/gagyo-push/internal/trigger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	counterStore, err := infraredis.NewRedisCounterStore(rdb)
	if err != nil {
		return fmt.Errorf("counter store initialization failed: %w", err)
	}

	limiter, err := ratelimit.NewSlidingWindowLimiter(
		counterStore,
		time.Duration(cfg.RateLimitWindowSec)*time.Second,
		int64(cfg.RateLimitCapacity),
	)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	pushProvider, err := buildProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("push provider initialization failed: %w", err)
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	metrics := observability.NewMetrics()

	tokenRepo := repository.NewGormDeviceTokenRepo(db)
	logRepo := repository.NewGormNotificationLogRepo(db)
	directory := repository.NewGormDirectoryRepo(db)

	dispatcher, err := service.NewDispatcher(tokenRepo, directory, logRepo, limiter, pushProvider, logger)
	if err != nil {
		return fmt.Errorf("dispatcher initialization failed: %w", err)
	}
	dispatcher.SetMetrics(metrics)

	devices, err := service.NewDeviceService(tokenRepo, logger)
	if err != nil {
		return fmt.Errorf("device service initialization failed: %w", err)
	}
	devices.SetMetrics(metrics)

	worker, err := service.NewWorkerService(dispatcher, consumer, publisher, cfg.WorkerConcurrency, logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	worker.SetMetrics(metrics)

	sweeper, err := service.NewSweeper(
		tokenRepo,
		time.Duration(cfg.SweepIntervalMin)*time.Minute,
		time.Duration(cfg.StaleTokenDays)*24*time.Hour,
		logger,
	)
	if err != nil {
		return fmt.Errorf("sweeper initialization failed: %w", err)
	}
	sweeper.SetMetrics(metrics)

	messageTrigger, err := trigger.NewMessageSentTrigger(directory, nil)
	if err != nil {
		return fmt.Errorf("message trigger initialization failed: %w", err)
	}
	prayerTrigger, err := trigger.NewPrayerAnsweredTrigger(directory, nil)
	if err != nil {
		return fmt.Errorf("prayer trigger initialization failed: %w", err)
	}
	journalTrigger, err := trigger.NewPastoralJournalTrigger(directory, nil)
	if err != nil {
		return fmt.Errorf("journal trigger initialization failed: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterDeviceRoutes(app, devices); err != nil {
		return fmt.Errorf("device routes registration failed: %w", err)
	}
	if err := handler.RegisterDispatchRoutes(app, dispatcher, logRepo); err != nil {
		return fmt.Errorf("dispatch routes registration failed: %w", err)
	}
	if err := handler.RegisterEventRoutes(app, messageTrigger, prayerTrigger, journalTrigger, publisher); err != nil {
		return fmt.Errorf("event routes registration failed: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return worker.Start(gctx)
	})

	g.Go(func() error {
		return sweeper.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.PushProvider, error) {
	switch cfg.PushProvider {
	case "fcm":
		return provider.NewFCMProvider(ctx, cfg.FCMCredentialsFile)
	case "gateway":
		return provider.NewHTTPGatewayProvider(cfg.GatewayPushURL)
	}
	return nil, fmt.Errorf("unknown push provider %q", cfg.PushProvider)
}

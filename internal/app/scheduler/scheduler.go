// Package scheduler собирает процесс периодических задач: повторную
// рассылку по обновленным курсам и ежедневную проверку неактивности.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-platform/internal/cache"
	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/services/inactivity"
	"github.com/magabrotheeeer/lms-platform/internal/services/notification"
	schedulerservice "github.com/magabrotheeeer/lms-platform/internal/services/scheduler"
	"github.com/magabrotheeeer/lms-platform/internal/storage"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	db               *storage.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	metricsAddr      string
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := storage.WaitReady(ctx, db, dbReadyAttempts, dbReadyDelay); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := rabbitmq.NewPublisher(ch)
	notifier := notification.NewService(db, publisher, cfg.Notification, cfg.FrontendURL, logger)

	// Без Redis рассылки работают, снимки курсов просто устаревают по TTL.
	courseCache, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Warn("course cache unavailable, snapshots will expire by ttl", sl.Err(err))
	} else {
		notifier.WithCache(courseCache)
	}

	schedulerService, err := schedulerservice.NewService(
		notifier,
		inactivity.NewService(db, publisher, cfg.Inactivity, logger),
		cfg.Notification,
		cfg.Inactivity,
		logger,
	)
	if err != nil {
		if courseCache != nil {
			_ = courseCache.Close()
		}
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	return &App{
		schedulerService: schedulerService,
		db:               db,
		cache:            courseCache,
		conn:             conn,
		ch:               ch,
		metricsAddr:      cfg.MetricsAddress,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go metrics.Serve(ctx, a.metricsAddr, a.logger)
	a.schedulerService.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	return nil
}

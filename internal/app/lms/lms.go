// Package lms собирает HTTP API платформы: хранилище, кеш, брокер,
// сервисы и маршруты.
package lms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/cache"
	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/http/handlers/health"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/migrations"
	"github.com/magabrotheeeer/lms-platform/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/lms-platform/internal/services/auth"
	courseservice "github.com/magabrotheeeer/lms-platform/internal/services/course"
	lessonservice "github.com/magabrotheeeer/lms-platform/internal/services/lesson"
	"github.com/magabrotheeeer/lms-platform/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/lms-platform/internal/services/payment"
	subservice "github.com/magabrotheeeer/lms-platform/internal/services/subscription"
	"github.com/magabrotheeeer/lms-platform/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API вместе с используемыми ресурсами.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	policy := access.NewPolicy(cfg.AdminDeleteOwnerOnly)
	notifier := notification.NewService(db, publisher, cfg.Notification, cfg.FrontendURL, logger).WithCache(cacheRedis)
	authService := authservice.NewService(db, jwtMaker, publisher, cfg.FrontendURL, logger)
	gateway := paymentprovider.NewClient(cfg.PaymentGateway, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, jwtMaker, Services{
		Auth:         authService,
		Users:        authService,
		Courses:      courseservice.NewService(db, cacheRedis, notifier, policy, logger),
		Lessons:      lessonservice.NewService(db, cacheRedis, notifier, policy, logger),
		Subscription: subservice.NewService(db, logger),
		Payments:     paymentservice.NewService(db, gateway, cfg.PaymentGateway, logger),
		UserGetter:   db,
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
			"rabbitmq": rabbitmq.Health{Conn: conn},
		},
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}

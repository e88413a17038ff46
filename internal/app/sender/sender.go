// Package sender собирает процесс доставки писем: потребитель очередей
// RabbitMQ и почтовый транспорт.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sendgrid"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/lms-platform/internal/services/sender"
)

const sendTimeout = 30 * time.Second

// App представляет приложение отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	metricsAddr   string
	logger        *slog.Logger
}

// NewMailer выбирает транспорт по cfg.EmailProvider.
func NewMailer(cfg config.Email, logger *slog.Logger) (senderservice.Mailer, error) {
	switch cfg.EmailProvider {
	case "", "smtp":
		return smtp.NewMailer(smtp.NewTransport(cfg, logger), logger), nil
	case "sendgrid":
		return sendgrid.NewMailer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("sender.NewMailer: unknown email provider %q", cfg.EmailProvider)
	}
}

// New подключается к брокеру и готовит транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	mailer, err := NewMailer(cfg.Email, logger)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewService(mailer, sendTimeout, logger),
		metricsAddr:   cfg.MetricsAddress,
		logger:        logger,
	}, nil
}

// Run слушает все очереди писем до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go metrics.Serve(ctx, a.metricsAddr, a.logger)

	handle := func(body []byte) error {
		return a.senderService.Handle(ctx, body)
	}
	for _, q := range rabbitmq.GetNotificationQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, handle); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.close()
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}

// Package sender доставляет задания на отправку писем из очереди.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Mailer транспорт писем: SMTP или SendGrid.
type Mailer interface {
	Send(ctx context.Context, email models.Email) error
}

// Service разбирает задания и передаёт письма транспорту.
type Service struct {
	mailer  Mailer
	timeout time.Duration
	log     *slog.Logger
}

// NewService создаёт Service. timeout ограничивает отправку одного письма.
func NewService(mailer Mailer, timeout time.Duration, log *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{mailer: mailer, timeout: timeout, log: log}
}

// Handle обрабатывает тело сообщения из очереди. Некорректное задание
// возвращает ошибку с rabbitmq.ErrDrop, чтобы оно не вернулось в очередь.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	const op = "sender.Handle"
	var job models.Notification
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal notification", sl.Err(err))
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrDrop, err)
	}
	log := s.log.With(slog.String("job_id", job.ID), slog.String("kind", string(job.Kind)))

	if len(job.Recipients) == 0 {
		log.Warn("notification without recipients skipped")
		return nil
	}
	if job.Subject == "" {
		log.Error("notification without subject dropped")
		return fmt.Errorf("%s: %w: empty subject", op, rabbitmq.ErrDrop)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.mailer.Send(sendCtx, models.Email{To: job.Recipients, Subject: job.Subject, Body: job.Body})
	if err != nil {
		metrics.EmailsSent.WithLabelValues(string(job.Kind), "error").Inc()
		log.Error("failed to send email", slog.Int("recipients", len(job.Recipients)), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.EmailsSent.WithLabelValues(string(job.Kind), "ok").Inc()
	log.Info("email sent", slog.Int("recipients", len(job.Recipients)))
	return nil
}

// Package inactivity выключает учётные записи, владельцы которых давно не входили.
package inactivity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/services/notification"
)

// Repository хранилище пользователей.
type Repository interface {
	DeactivateInactiveUsers(ctx context.Context, cutoff time.Time) ([]string, error)
	ListActiveAdminEmails(ctx context.Context) ([]string, error)
}

// Publisher передаёт отчёт на отправку.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service периодическая проверка неактивности.
type Service struct {
	repo      Repository
	publisher Publisher
	threshold time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewService создаёт Service.
func NewService(repo Repository, publisher Publisher, cfg config.Inactivity, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		threshold: cfg.InactivityThreshold,
		log:       log,
		now:       time.Now,
	}
}

// Sweep выключает активных пользователей с last_login раньше now-threshold
// и отправляет администраторам отчёт. Повторный запуск ничего не меняет
// и возвращает 0. Ошибка отчёта не возвращается.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	const op = "inactivity.Sweep"
	now := s.now()
	cutoff := now.Add(-s.threshold)
	log := s.log.With(slog.String("op", op), slog.Time("cutoff", cutoff))

	emails, err := s.repo.DeactivateInactiveUsers(ctx, cutoff)
	if err != nil {
		log.Error("failed to deactivate inactive users", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(emails) == 0 {
		log.Info("no inactive users found")
		return 0, nil
	}

	metrics.UsersDeactivated.Add(float64(len(emails)))
	log.Info("inactive users deactivated", slog.Int("count", len(emails)))

	s.report(ctx, log, emails, now)
	return len(emails), nil
}

func (s *Service) report(ctx context.Context, log *slog.Logger, emails []string, at time.Time) {
	admins, err := s.repo.ListActiveAdminEmails(ctx)
	if err != nil {
		log.Error("failed to list admins for report", sl.Err(err))
		return
	}
	if len(admins) == 0 {
		log.Warn("no active admins to receive inactivity report")
		return
	}

	if err := s.publisher.Publish(ctx, rabbitmq.RoutingReport, notification.InactivityReport(emails, at, admins)); err != nil {
		log.Error("failed to publish inactivity report", sl.Err(err))
		return
	}
	log.Info("inactivity report queued", slog.Int("admins", len(admins)))
}

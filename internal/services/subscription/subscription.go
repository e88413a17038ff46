// Package subscription управляет подписками пользователей на курсы.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Размер страницы списка подписок.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repository хранилище подписок.
type Repository interface {
	Subscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID int64, page models.Page) ([]*models.Subscription, error)
}

// Service операции над подписками от имени пользователя.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создаёт Service.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Subscribe подписывает пользователя на курс. Повторный вызов не создаёт
// новой записи и оставляет подписку активной.
func (s *Service) Subscribe(ctx context.Context, actor access.Actor, courseID int64) (*models.Subscription, error) {
	const op = "subscription.Subscribe"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	sub, err := s.repo.Subscribe(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscribed", slog.Int64("user_id", actor.UserID), slog.Int64("course_id", courseID))
	return sub, nil
}

// Unsubscribe выключает подписку. Без активной подписки возвращает
// models.ErrNotSubscribed.
func (s *Service) Unsubscribe(ctx context.Context, actor access.Actor, courseID int64) (*models.Subscription, error) {
	const op = "subscription.Unsubscribe"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	sub, err := s.repo.Unsubscribe(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("unsubscribed", slog.Int64("user_id", actor.UserID), slog.Int64("course_id", courseID))
	return sub, nil
}

// List возвращает подписки пользователя.
func (s *Service) List(ctx context.Context, actor access.Actor, page, limit int) ([]*models.Subscription, error) {
	const op = "subscription.List"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	subs, err := s.repo.ListSubscriptions(ctx, actor.UserID, models.NewPage(page, limit, DefaultPageSize, MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// Package course реализует операции над курсами с проверкой прав доступа.
package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/cache"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Размер страницы списка курсов.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Repository хранилище курсов.
type Repository interface {
	CreateCourse(ctx context.Context, course models.Course) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, upd models.CourseUpdate) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

// Cache кеш снимков курсов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Notifier получает сигнал об изменении курса.
type Notifier interface {
	OnCourseUpdated(ctx context.Context, course *models.Course) bool
}

// Service операции над курсами.
type Service struct {
	repo     Repository
	cache    Cache
	notifier Notifier
	policy   *access.Policy
	log      *slog.Logger
}

// NewService создаёт Service.
func NewService(repo Repository, cache Cache, notifier Notifier, policy *access.Policy, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		policy:   policy,
		log:      log,
	}
}

// Create создаёт курс, владельцем становится actor.
func (s *Service) Create(ctx context.Context, actor access.Actor, input models.CourseInput) (*models.Course, error) {
	const op = "course.Create"
	if err := s.policy.Authorize(actor, access.NewCourseTarget(), access.ActionCreate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateFields(&input.Title, &input.Price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner := actor.UserID
	c, err := s.repo.CreateCourse(ctx, models.Course{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		OwnerID:     &owner,
		Price:       input.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("course created", slog.Int64("course_id", c.ID), slog.Int64("owner_id", owner))
	return c, nil
}

// Get возвращает курс, если actor вправе его видеть.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*models.Course, error) {
	const op = "course.Get"
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.CourseTarget(c), access.ActionView); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// List возвращает курсы: персоналу все, остальным только свои.
func (s *Service) List(ctx context.Context, actor access.Actor, page, size int) ([]*models.Course, error) {
	const op = "course.List"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	var ownerID *int64
	if !s.policy.SeesAll(actor, access.ResourceCourse) {
		ownerID = &actor.UserID
	}
	courses, err := s.repo.ListCourses(ctx, ownerID, models.NewPage(page, size, DefaultPageSize, MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return courses, nil
}

// Update применяет частичное обновление и сообщает о нём подписчикам.
func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, upd models.CourseUpdate) (*models.Course, error) {
	const op = "course.Update"
	current, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.CourseTarget(current), access.ActionUpdate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateFields(upd.Title, upd.Price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		upd.Title = &title
	}

	updated, err := s.repo.UpdateCourse(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("course updated", slog.Int64("course_id", id), slog.Int64("actor_id", actor.UserID))

	s.notifier.OnCourseUpdated(ctx, updated)
	return updated, nil
}

// Delete удаляет курс вместе с уроками.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	const op = "course.Delete"
	current, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.CourseTarget(current), access.ActionDelete); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("course deleted", slog.Int64("course_id", id), slog.Int64("actor_id", actor.UserID))
	return nil
}

// load читает курс из кеша, при промахе из хранилища.
func (s *Service) load(ctx context.Context, id int64) (*models.Course, error) {
	key := cache.CourseKey(id)
	var cached models.Course
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read course from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, c); err != nil {
		s.log.Warn("failed to cache course", slog.String("key", key), sl.Err(err))
	}
	return c, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	key := cache.CourseKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate course cache", slog.String("key", key), sl.Err(err))
	}
}

func validateFields(title *string, price *int64) error {
	if title != nil && strings.TrimSpace(*title) == "" {
		return models.NewValidationError("title", "must not be empty")
	}
	if title != nil && len(*title) > 255 {
		return models.NewValidationError("title", "must be at most 255 characters")
	}
	if price != nil && *price < 0 {
		return models.NewValidationError("price", "must not be negative")
	}
	return nil
}

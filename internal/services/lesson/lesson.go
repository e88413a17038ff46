// Package lesson реализует операции над уроками курсов.
package lesson

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/cache"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/lib/videourl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Размер страницы списка уроков.
const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// Repository хранилище уроков. GetCourse нужен для проверки прав на
// родительский курс.
type Repository interface {
	CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	ListLessons(ctx context.Context, filter models.LessonFilter) ([]*models.Lesson, error)
	UpdateLesson(ctx context.Context, id int64, upd models.LessonUpdate) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, id int64) error
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
}

// Cache снимки курсов содержат число уроков и сбрасываются при его изменении.
type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Notifier получает сигнал об изменении урока.
type Notifier interface {
	OnLessonUpdated(ctx context.Context, lesson *models.Lesson, course *models.Course) bool
}

// Service операции над уроками.
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

// Create добавляет урок в курс. Создать урок может только владелец курса
// или администратор, владельцем урока становится actor.
func (s *Service) Create(ctx context.Context, actor access.Actor, input models.LessonInput) (*models.Lesson, error) {
	const op = "lesson.Create"
	parent, err := s.repo.GetCourse(ctx, input.CourseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.NewLessonTarget(parent), access.ActionCreate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateFields(&input.Title, &input.VideoURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	owner := actor.UserID
	l, err := s.repo.CreateLesson(ctx, models.Lesson{
		CourseID:    parent.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		VideoURL:    strings.TrimSpace(input.VideoURL),
		OwnerID:     &owner,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCourse(ctx, parent.ID)
	s.log.Info("lesson created",
		slog.Int64("lesson_id", l.ID),
		slog.Int64("course_id", parent.ID),
		slog.Int64("owner_id", owner),
	)
	return l, nil
}

// Get возвращает урок, если actor вправе его видеть.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*models.Lesson, error) {
	const op = "lesson.Get"
	l, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.LessonTarget(l), access.ActionView); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// List возвращает уроки с необязательным фильтром по курсу.
func (s *Service) List(ctx context.Context, actor access.Actor, courseID *int64, page, size int) ([]*models.Lesson, error) {
	const op = "lesson.List"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	filter := models.LessonFilter{
		CourseID: courseID,
		Page:     models.NewPage(page, size, DefaultPageSize, MaxPageSize),
	}
	if !s.policy.SeesAll(actor, access.ResourceLesson) {
		filter.OwnerID = &actor.UserID
	}
	lessons, err := s.repo.ListLessons(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lessons, nil
}

// Update применяет частичное обновление и сообщает подписчикам курса.
func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, upd models.LessonUpdate) (*models.Lesson, error) {
	const op = "lesson.Update"
	current, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.LessonTarget(current), access.ActionUpdate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateFields(upd.Title, upd.VideoURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		upd.Title = &title
	}
	if upd.VideoURL != nil {
		video := strings.TrimSpace(*upd.VideoURL)
		upd.VideoURL = &video
	}

	updated, err := s.repo.UpdateLesson(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("lesson updated", slog.Int64("lesson_id", id), slog.Int64("actor_id", actor.UserID))

	parent, err := s.repo.GetCourse(ctx, updated.CourseID)
	if err != nil {
		s.log.Error("failed to load parent course for notification",
			slog.Int64("course_id", updated.CourseID), sl.Err(err))
		return updated, nil
	}
	s.notifier.OnLessonUpdated(ctx, updated, parent)
	return updated, nil
}

// Delete удаляет урок.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	const op = "lesson.Delete"
	current, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.policy.Authorize(actor, access.LessonTarget(current), access.ActionDelete); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.DeleteLesson(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCourse(ctx, current.CourseID)
	s.log.Info("lesson deleted", slog.Int64("lesson_id", id), slog.Int64("actor_id", actor.UserID))
	return nil
}

func (s *Service) invalidateCourse(ctx context.Context, courseID int64) {
	key := cache.CourseKey(courseID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate course cache", slog.String("key", key), sl.Err(err))
	}
}

func validateFields(title, videoURL *string) error {
	if title != nil && strings.TrimSpace(*title) == "" {
		return models.NewValidationError("title", "must not be empty")
	}
	if title != nil && len(*title) > 255 {
		return models.NewValidationError("title", "must be at most 255 characters")
	}
	return videourl.ValidatePtr(videoURL)
}

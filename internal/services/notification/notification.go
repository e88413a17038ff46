// Package notification решает, пора ли рассылать подписчикам письмо об
// обновлении курса, и передаёт задание на отправку в брокер.
//
// Окно рассылки хранится в курсе (last_notification_sent). Занятие окна и
// сбор получателей выполняются одной транзакцией в хранилище, поэтому два
// одновременных обновления курса не приводят к двум письмам.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/cache"
	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Repository хранилище окон рассылки.
type Repository interface {
	ClaimCourseNotification(ctx context.Context, courseID int64, now time.Time, cooldown time.Duration) (*models.NotificationClaim, error)
	ListRecentlyUpdatedCourseIDs(ctx context.Context, since time.Time) ([]int64, error)
}

// Publisher передаёт задание на отправку письма.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Invalidator сбрасывает закэшированные снимки курса.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Service throttle рассылок об обновлении курсов.
type Service struct {
	repo        Repository
	publisher   Publisher
	cache       Invalidator
	cooldown    time.Duration
	frontendURL string
	log         *slog.Logger
	now         func() time.Time
}

// NewService создаёт Service.
func NewService(repo Repository, publisher Publisher, cfg config.Notification, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		publisher:   publisher,
		cooldown:    cfg.NotificationCooldown,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

// WithCache подключает кэш курсов. После занятия окна снимок курса сбрасывается.
func (s *Service) WithCache(c Invalidator) *Service {
	s.cache = c
	return s
}

// Due истинно, если рассылки ещё не было или последняя была раньше now-cooldown.
func Due(last *time.Time, now time.Time, cooldown time.Duration) bool {
	return last == nil || last.Before(now.Add(-cooldown))
}

// OnCourseUpdated вызывается после успешного изменения курса. Возвращает true,
// если задание на рассылку опубликовано. Ошибки только логируются.
func (s *Service) OnCourseUpdated(ctx context.Context, course *models.Course) bool {
	return s.dispatch(ctx, course.ID, course.LastNotificationSent, func(c *models.NotificationClaim) models.Notification {
		return CourseUpdated(s.frontendURL, c.CourseID, c.Title, c.Recipients)
	})
}

// OnLessonUpdated вызывается после успешного изменения урока. Окно рассылки
// берётся у родительского курса.
func (s *Service) OnLessonUpdated(ctx context.Context, lesson *models.Lesson, course *models.Course) bool {
	return s.dispatch(ctx, course.ID, course.LastNotificationSent, func(c *models.NotificationClaim) models.Notification {
		return LessonUpdated(s.frontendURL, c.CourseID, c.Title, lesson.Title, c.Recipients)
	})
}

// Rescan проверяет курсы, изменённые за последнее окно, включая изменения
// уроков, и рассылает уведомления там, где окно свободно. Возвращает число
// курсов, по которым ушло письмо.
func (s *Service) Rescan(ctx context.Context) (int, error) {
	const op = "notification.Rescan"

	ids, err := s.repo.ListRecentlyUpdatedCourseIDs(ctx, s.now().Add(-s.cooldown))
	if err != nil {
		s.log.Error("failed to list updated courses", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		ok := s.dispatch(ctx, id, nil, func(c *models.NotificationClaim) models.Notification {
			return CourseUpdated(s.frontendURL, c.CourseID, c.Title, c.Recipients)
		})
		if ok {
			sent++
		}
	}
	s.log.Info("notification rescan finished", slog.Int("candidates", len(ids)), slog.Int("sent", sent))
	return sent, nil
}

// dispatch занимает окно курса и публикует задание. known позволяет не
// открывать транзакцию, когда окно заведомо занято.
func (s *Service) dispatch(ctx context.Context, courseID int64, known *time.Time, build func(*models.NotificationClaim) models.Notification) bool {
	log := s.log.With(slog.Int64("course_id", courseID))
	now := s.now()

	if !Due(known, now, s.cooldown) {
		metrics.CourseNotifications.WithLabelValues(metrics.OutcomeThrottled).Inc()
		log.Debug("notification throttled")
		return false
	}

	claim, err := s.repo.ClaimCourseNotification(ctx, courseID, now, s.cooldown)
	if err != nil {
		metrics.CourseNotifications.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("failed to claim notification window", sl.Err(err))
		return false
	}
	if !claim.Claimed {
		outcome := metrics.OutcomeThrottled
		if claim.Due {
			outcome = metrics.OutcomeNoAudience
		}
		metrics.CourseNotifications.WithLabelValues(outcome).Inc()
		log.Debug("notification not claimed", slog.String("outcome", outcome))
		return false
	}

	s.invalidate(ctx, log, courseID)

	job := build(claim)
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingCourseUpdate, job); err != nil {
		metrics.CourseNotifications.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("failed to publish course update", sl.Err(err))
		return false
	}

	metrics.CourseNotifications.WithLabelValues(metrics.OutcomeDispatched).Inc()
	log.Info("course update notification queued", slog.Int("recipients", len(claim.Recipients)), slog.String("job_id", job.ID))
	return true
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger, courseID int64) {
	if s.cache == nil {
		return
	}
	key := cache.CourseKey(courseID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log.Warn("failed to invalidate course cache", slog.String("key", key), sl.Err(err))
	}
}

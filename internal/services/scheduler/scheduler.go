// Package scheduler запускает периодические задачи LMS: повторную проверку
// обновлённых курсов и ежедневную деактивацию неактивных пользователей.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
)

// Rescanner рассылает уведомления по недавно обновлённым курсам.
type Rescanner interface {
	Rescan(ctx context.Context) (int, error)
}

// Sweeper деактивирует неактивных пользователей.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Service расписание задач.
type Service struct {
	rescanner   Rescanner
	sweeper     Sweeper
	rescanEvery time.Duration
	runHour     int
	runMinute   int
	loc         *time.Location
	log         *slog.Logger
	now         func() time.Time
}

// NewService создаёт Service. Ошибка означает неверное время запуска или часовой пояс.
func NewService(rescanner Rescanner, sweeper Sweeper, notif config.Notification, inact config.Inactivity, log *slog.Logger) (*Service, error) {
	const op = "scheduler.NewService"
	hour, minute, err := inact.RunAtClock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	loc, err := inact.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	every := notif.RescanInterval
	if every <= 0 {
		every = time.Hour
	}
	return &Service{
		rescanner:   rescanner,
		sweeper:     sweeper,
		rescanEvery: every,
		runHour:     hour,
		runMinute:   minute,
		loc:         loc,
		log:         log,
		now:         time.Now,
	}, nil
}

// NextAligned возвращает ближайшую после now границу интервала every.
func NextAligned(now time.Time, every time.Duration) time.Time {
	return now.Truncate(every).Add(every)
}

// NextDaily возвращает ближайший после now момент hour:minute в часовом поясе loc.
func NextDaily(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run выполняет задачи по расписанию до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("scheduler started",
		slog.String("rescan_every", s.rescanEvery.String()),
		slog.String("sweep_at", fmt.Sprintf("%02d:%02d %s", s.runHour, s.runMinute, s.loc)),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, "notification rescan", func(now time.Time) time.Time {
			return NextAligned(now, s.rescanEvery)
		}, s.RunRescan)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "inactivity sweep", func(now time.Time) time.Time {
			return NextDaily(now, s.runHour, s.runMinute, s.loc)
		}, s.RunSweep)
	}()
	wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Service) loop(ctx context.Context, name string, next func(time.Time) time.Time, job func(context.Context)) {
	for {
		at := next(s.now())
		s.log.Debug("next run scheduled", slog.String("job", name), slog.Time("at", at))

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			job(ctx)
		}
	}
}

// RunRescan выполняет одну проверку обновлённых курсов.
func (s *Service) RunRescan(ctx context.Context) {
	s.log.Info("starting notification rescan")
	n, err := s.rescanner.Rescan(ctx)
	if err != nil {
		s.log.Error("notification rescan failed", sl.Err(err))
		return
	}
	s.log.Info("notification rescan finished", slog.Int("notified", n))
}

// RunSweep выполняет одну проверку неактивных пользователей.
func (s *Service) RunSweep(ctx context.Context) {
	s.log.Info("starting inactivity sweep")
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error("inactivity sweep failed", sl.Err(err))
		return
	}
	s.log.Info("inactivity sweep finished", slog.Int("deactivated", n))
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// ClaimCourseNotification в одной транзакции блокирует строку курса,
// перепроверяет окно cooldown, собирает адреса активных подписчиков и,
// если они есть, сдвигает last_notification_sent на now.
// Параллельные вызовы сериализуются блокировкой, поэтому в одном окне
// рассылку получает только один из них.
func (s *Storage) ClaimCourseNotification(ctx context.Context, courseID int64, now time.Time, cooldown time.Duration) (*models.NotificationClaim, error) {
	const op = "storage.ClaimCourseNotification"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	claim := &models.NotificationClaim{CourseID: courseID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullTime
		if err := tx.QueryRowContext(ctx, `
			SELECT title, last_notification_sent FROM courses WHERE id = $1 FOR UPDATE`, courseID,
		).Scan(&claim.Title, &last); err != nil {
			return err
		}
		if !dueAt(nullTimePtr(last), now, cooldown) {
			return nil
		}
		claim.Due = true

		rows, err := tx.QueryContext(ctx, `
			SELECT u.email
			FROM subscriptions s
			JOIN users u ON u.id = s.user_id
			WHERE s.course_id = $1 AND s.is_active AND u.is_active
			ORDER BY u.email`, courseID)
		if err != nil {
			return err
		}
		defer rows.Close()

		var emails []string
		for rows.Next() {
			var email string
			if err := rows.Scan(&email); err != nil {
				return err
			}
			emails = append(emails, email)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(emails) == 0 {
			return nil
		}

		if _, err = tx.ExecContext(ctx, `
			UPDATE courses
			SET last_notification_sent = GREATEST(COALESCE(last_notification_sent, $2), $2)
			WHERE id = $1`, courseID, now); err != nil {
			return err
		}
		claim.Recipients = emails
		claim.Claimed = true
		return nil
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return claim, nil
}

// dueAt повторяет правило окна рассылки внутри транзакции.
func dueAt(last *time.Time, now time.Time, cooldown time.Duration) bool {
	return last == nil || last.Before(now.Add(-cooldown))
}

// ListRecentlyUpdatedCourseIDs возвращает курсы, изменённые после since
// напрямую или через любой из уроков. Только что созданные курсы и уроки
// не учитываются: у них updated_at совпадает с created_at.
func (s *Storage) ListRecentlyUpdatedCourseIDs(ctx context.Context, since time.Time) ([]int64, error) {
	const op = "storage.ListRecentlyUpdatedCourseIDs"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id FROM courses c
		WHERE c.updated_at >= $1 AND c.updated_at > c.created_at
		UNION
		SELECT l.course_id FROM lessons l
		WHERE l.updated_at >= $1 AND l.updated_at > l.created_at
		ORDER BY 1`, since)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

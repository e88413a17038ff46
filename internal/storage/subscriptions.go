package storage

import (
	"context"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const subscriptionColumns = `id, user_id, course_id, is_active, subscribed_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.CourseID, &sub.IsActive, &sub.SubscribedAt); err != nil {
		return nil, err
	}
	return sub, nil
}

// Subscribe атомарно создаёт подписку или реактивирует существующую.
// Уникальность пары (user_id, course_id) обеспечивает ограничение в схеме,
// поэтому параллельные вызовы не создают дубликатов.
func (s *Storage) Subscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error) {
	const op = "storage.Subscribe"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id, course_id, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id, course_id) DO UPDATE SET is_active = TRUE
		RETURNING `+subscriptionColumns, userID, courseID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return sub, nil
}

// Unsubscribe выключает активную подписку. Если активной подписки нет,
// возвращает models.ErrNotSubscribed и ничего не создаёт.
func (s *Storage) Unsubscribe(ctx context.Context, userID, courseID int64) (*models.Subscription, error) {
	const op = "storage.Unsubscribe"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		UPDATE subscriptions SET is_active = FALSE
		WHERE user_id = $1 AND course_id = $2 AND is_active
		RETURNING `+subscriptionColumns, userID, courseID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapErr(op, err)
		}
		return nil, models.ErrNotSubscribed
	}
	sub, err := scanSubscription(rows)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return sub, nil
}

// ListSubscriptions возвращает подписки пользователя, новые первыми.
func (s *Storage) ListSubscriptions(ctx context.Context, userID int64, page models.Page) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY subscribed_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	subs := make([]*models.Subscription, 0, page.Limit)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return subs, nil
}

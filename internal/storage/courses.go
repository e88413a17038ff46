package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const courseColumns = `c.id, c.title, c.description, c.owner_id, c.price, c.last_notification_sent,
	(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id), c.created_at, c.updated_at`

func scanCourse(row rowScanner) (*models.Course, error) {
	c := &models.Course{}
	var ownerID sql.NullInt64
	var lastSent sql.NullTime
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &ownerID, &c.Price, &lastSent,
		&c.LessonsCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.OwnerID = nullInt64Ptr(ownerID)
	c.LastNotificationSent = nullTimePtr(lastSent)
	return c, nil
}

// CreateCourse сохраняет курс и возвращает сохранённую запись.
func (s *Storage) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	const op = "storage.CreateCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var id int64
	if err := s.DB.QueryRowContext(ctx, `
		INSERT INTO courses (title, description, owner_id, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		course.Title, course.Description, course.OwnerID, course.Price).Scan(&id); err != nil {
		return nil, wrapErr(op, err)
	}
	return s.GetCourse(ctx, id)
}

// GetCourse возвращает курс с количеством уроков.
func (s *Storage) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	const op = "storage.GetCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	c, err := scanCourse(s.DB.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return c, nil
}

// ListCourses возвращает курсы, новые первыми. При ownerID != nil только курсы владельца.
func (s *Storage) ListCourses(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Course, error) {
	const op = "storage.ListCourses"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+courseColumns+`
		FROM courses c
		WHERE ($1::bigint IS NULL OR c.owner_id = $1)
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3`, ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	courses := make([]*models.Course, 0, page.Limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return courses, nil
}

// UpdateCourse применяет частичное обновление и сдвигает updated_at.
func (s *Storage) UpdateCourse(ctx context.Context, id int64, upd models.CourseUpdate) (*models.Course, error) {
	const op = "storage.UpdateCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE courses SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			updated_at = NOW()
		WHERE id = $1`, id, upd.Title, upd.Description, upd.Price)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if err := expectAffected(op, res); err != nil {
		return nil, err
	}
	return s.GetCourse(ctx, id)
}

// DeleteCourse удаляет курс вместе с уроками и подписками.
func (s *Storage) DeleteCourse(ctx context.Context, id int64) error {
	const op = "storage.DeleteCourse"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

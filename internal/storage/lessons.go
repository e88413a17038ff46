package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const lessonColumns = `id, course_id, title, description, video_url, owner_id, created_at, updated_at`

func scanLesson(row rowScanner) (*models.Lesson, error) {
	l := &models.Lesson{}
	var ownerID sql.NullInt64
	if err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Description, &l.VideoURL, &ownerID,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.OwnerID = nullInt64Ptr(ownerID)
	return l, nil
}

// CreateLesson сохраняет урок. Несуществующий курс даёт models.ErrNotFound.
func (s *Storage) CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	const op = "storage.CreateLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	l, err := scanLesson(s.DB.QueryRowContext(ctx, `
		INSERT INTO lessons (course_id, title, description, video_url, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+lessonColumns,
		lesson.CourseID, lesson.Title, lesson.Description, lesson.VideoURL, lesson.OwnerID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return l, nil
}

// GetLesson возвращает урок по ID.
func (s *Storage) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	const op = "storage.GetLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	l, err := scanLesson(s.DB.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return l, nil
}

// ListLessons возвращает уроки по фильтру в порядке создания.
func (s *Storage) ListLessons(ctx context.Context, filter models.LessonFilter) ([]*models.Lesson, error) {
	const op = "storage.ListLessons"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+lessonColumns+`
		FROM lessons
		WHERE ($1::bigint IS NULL OR owner_id = $1)
		  AND ($2::bigint IS NULL OR course_id = $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`, filter.OwnerID, filter.CourseID, filter.Page.Limit, filter.Page.Offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	lessons := make([]*models.Lesson, 0, filter.Page.Limit)
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return lessons, nil
}

// UpdateLesson применяет частичное обновление и сдвигает updated_at.
func (s *Storage) UpdateLesson(ctx context.Context, id int64, upd models.LessonUpdate) (*models.Lesson, error) {
	const op = "storage.UpdateLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	l, err := scanLesson(s.DB.QueryRowContext(ctx, `
		UPDATE lessons SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			video_url = COALESCE($4, video_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+lessonColumns, id, upd.Title, upd.Description, upd.VideoURL))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return l, nil
}

// DeleteLesson удаляет урок.
func (s *Storage) DeleteLesson(ctx context.Context, id int64) error {
	const op = "storage.DeleteLesson"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

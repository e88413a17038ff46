package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const userColumns = `id, email, password_hash, first_name, phone, city,
	is_admin, is_moderator, is_active, last_login, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.Phone, &u.City,
		&u.IsAdmin, &u.IsModerator, &u.IsActive, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.LastLogin = nullTimePtr(lastLogin)
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его ID.
// Повторный email возвращает ValidationError по полю email.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var id int64
	query := `INSERT INTO users (email, password_hash, first_name, phone, city, is_admin, is_moderator, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.Phone, user.City,
		user.IsAdmin, user.IsModerator).Scan(&id); err != nil {
		return 0, wrapErr(op, err)
	}
	return id, nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// UpdateLastLogin фиксирует время последнего входа.
func (s *Storage) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.UpdateLastLogin"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// SetUserActive включает или выключает учётную запись.
func (s *Storage) SetUserActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	const op = "storage.SetUserActive"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET is_active = $2 WHERE id = $1 RETURNING `+userColumns, id, active))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// SetUserRole выставляет флаги ролей пользователя с указанным email.
func (s *Storage) SetUserRole(ctx context.Context, email string, isAdmin, isModerator bool) (*models.User, error) {
	const op = "storage.SetUserRole"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET is_admin = $2, is_moderator = $3 WHERE lower(email) = lower($1) RETURNING `+userColumns,
		email, isAdmin, isModerator))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// DeactivateInactiveUsers одним запросом выключает активных пользователей,
// не входивших с момента cutoff, и возвращает их email. Пользователи, ни разу
// не входившие в систему, не затрагиваются.
func (s *Storage) DeactivateInactiveUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	const op = "storage.DeactivateInactiveUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		UPDATE users SET is_active = FALSE
		WHERE is_active AND last_login IS NOT NULL AND last_login < $1
		RETURNING email`, cutoff)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return scanStrings(op, rows)
}

// ListActiveAdminEmails возвращает адреса активных администраторов.
func (s *Storage) ListActiveAdminEmails(ctx context.Context) ([]string, error) {
	const op = "storage.ListActiveAdminEmails"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT email FROM users WHERE is_admin AND is_active ORDER BY email`)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return scanStrings(op, rows)
}

func scanStrings(op string, rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return out, nil
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return wrapErr(op, sql.ErrNoRows)
	}
	return nil
}

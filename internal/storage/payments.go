package storage

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const paymentColumns = `id, user_id, course_id, lesson_id, amount, payment_method, status, gateway_session_id, payment_date`

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var courseID, lessonID sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &courseID, &lessonID, &p.Amount, &p.Method, &p.Status,
		&p.GatewaySessionID, &p.PaymentDate); err != nil {
		return nil, err
	}
	p.CourseID = nullInt64Ptr(courseID)
	p.LessonID = nullInt64Ptr(lessonID)
	return p, nil
}

// CreatePayment сохраняет платёж. Инвариант "курс либо урок" дублируется
// ограничением chk_payments_course_xor_lesson.
func (s *Storage) CreatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error) {
	const op = "storage.CreatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	status := payment.Status
	if status == "" {
		status = models.PaymentStatusSettled
	}
	p, err := scanPayment(s.DB.QueryRowContext(ctx, `
		INSERT INTO payments (user_id, course_id, lesson_id, amount, payment_method, status, gateway_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+paymentColumns,
		payment.UserID, payment.CourseID, payment.LessonID, payment.Amount, string(payment.Method),
		string(status), payment.GatewaySessionID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// ListPayments возвращает платежи по фильтру, по умолчанию новые первыми.
func (s *Storage) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::bigint IS NULL OR course_id = $2)
		  AND ($3::bigint IS NULL OR lesson_id = $3)
		  AND ($4::text = '' OR payment_method = $4)
		ORDER BY payment_date `+order+`, id `+order+`
		LIMIT $5 OFFSET $6`,
		filter.UserID, filter.CourseID, filter.LessonID, string(filter.Method), filter.Page.Limit, filter.Page.Offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0, filter.Page.Limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return payments, nil
}

// SettleGatewayPayment переводит платёж сессии в settled. Повторный вызов
// для уже проведённой сессии возвращает тот же платёж.
func (s *Storage) SettleGatewayPayment(ctx context.Context, sessionID string) (*models.Payment, error) {
	const op = "storage.SettleGatewayPayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx, `
		UPDATE payments SET status = 'settled', payment_date = CASE WHEN status = 'pending' THEN NOW() ELSE payment_date END
		WHERE gateway_session_id = $1 AND gateway_session_id <> ''
		RETURNING `+paymentColumns, sessionID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// GetGatewayProduct возвращает сохранённые в шлюзе товар и цену курса.
func (s *Storage) GetGatewayProduct(ctx context.Context, courseID int64) (*models.GatewayProduct, error) {
	const op = "storage.GetGatewayProduct"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	gp := &models.GatewayProduct{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT course_id, product_id, price_id FROM gateway_products WHERE course_id = $1`, courseID,
	).Scan(&gp.CourseID, &gp.ProductID, &gp.PriceID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return gp, nil
}

// SaveGatewayProduct запоминает товар курса. При гонке побеждает первая
// запись, её и возвращает.
func (s *Storage) SaveGatewayProduct(ctx context.Context, product models.GatewayProduct) (*models.GatewayProduct, error) {
	const op = "storage.SaveGatewayProduct"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO gateway_products (course_id, product_id, price_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id) DO NOTHING`, product.CourseID, product.ProductID, product.PriceID); err != nil {
		return nil, wrapErr(op, err)
	}
	return s.GetGatewayProduct(ctx, product.CourseID)
}

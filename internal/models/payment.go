package models

import "time"

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodGateway  PaymentMethod = "external_gateway"
)

// Valid сообщает, известен ли способ оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodGateway:
		return true
	}
	return false
}

// PaymentStatus состояние платежа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSettled PaymentStatus = "settled"
)

// Payment оплата курса либо отдельного урока, но не того и другого сразу.
type Payment struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	CourseID         *int64        `json:"course_id,omitempty"`
	LessonID         *int64        `json:"lesson_id,omitempty"`
	Amount           int64         `json:"amount"`
	Method           PaymentMethod `json:"payment_method"`
	Status           PaymentStatus `json:"status"`
	GatewaySessionID string        `json:"gateway_session_id,omitempty"`
	PaymentDate      time.Time     `json:"payment_date"`
}

// NewPayment создаёт платёж и проверяет его инварианты.
func NewPayment(userID int64, courseID, lessonID *int64, amount int64, method PaymentMethod) (*Payment, error) {
	p := &Payment{
		UserID:   userID,
		CourseID: courseID,
		LessonID: lessonID,
		Amount:   amount,
		Method:   method,
		Status:   PaymentStatusSettled,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate проверяет, что задан ровно один из курса и урока, сумма
// положительна, а способ оплаты известен.
func (p *Payment) Validate() error {
	if (p.CourseID == nil) == (p.LessonID == nil) {
		return NewValidationError("course_id", "exactly one of course_id and lesson_id must be set")
	}
	if p.Amount <= 0 {
		return NewValidationError("amount", "must be positive")
	}
	if !p.Method.Valid() {
		return NewValidationError("payment_method", "unknown payment method")
	}
	return nil
}

// GatewayProduct товар и цена курса, заведённые в платёжном шлюзе.
type GatewayProduct struct {
	CourseID  int64
	ProductID string
	PriceID   string
}

// PaymentInput ручная регистрация платежа администратором.
type PaymentInput struct {
	UserID   int64         `json:"user_id" validate:"required,gt=0"`
	CourseID *int64        `json:"course_id"`
	LessonID *int64        `json:"lesson_id"`
	Amount   int64         `json:"amount" validate:"required,gt=0"`
	Method   PaymentMethod `json:"payment_method" validate:"required"`
}

// Checkout результат создания сессии оплаты.
type Checkout struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	PaymentID   int64  `json:"payment_id"`
}

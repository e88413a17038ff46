// Package payment регистрирует оплаты курсов и уроков и проводит оплату
// через внешний платёжный шлюз.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/models"
	"github.com/magabrotheeeer/lms-platform/internal/paymentprovider"
)

// Размер страницы списка платежей.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repository хранилище платежей.
type Repository interface {
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	CreatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	SettleGatewayPayment(ctx context.Context, sessionID string) (*models.Payment, error)
	GetGatewayProduct(ctx context.Context, courseID int64) (*models.GatewayProduct, error)
	SaveGatewayProduct(ctx context.Context, product models.GatewayProduct) (*models.GatewayProduct, error)
}

// Gateway внешний платёжный шлюз.
type Gateway interface {
	CreateProduct(ctx context.Context, params paymentprovider.ProductParams) (*paymentprovider.Product, error)
	CreatePrice(ctx context.Context, params paymentprovider.PriceParams) (*paymentprovider.Price, error)
	CreateCheckoutSession(ctx context.Context, params paymentprovider.SessionParams) (*paymentprovider.Session, error)
}

// CheckoutInput запрос на оплату курса через шлюз.
type CheckoutInput struct {
	CourseID   int64  `json:"course_id" validate:"required,gt=0"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

// Service операции над платежами.
type Service struct {
	repo          Repository
	gateway       Gateway
	currency      string
	webhookSecret string
	log           *slog.Logger
	now           func() time.Time
}

// NewService создаёт Service.
func NewService(repo Repository, gateway Gateway, cfg config.PaymentGateway, log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		gateway:       gateway,
		currency:      cfg.GatewayCurrency,
		webhookSecret: cfg.GatewayWebhookSecret,
		log:           log,
		now:           time.Now,
	}
}

// Checkout создаёт сессию оплаты курса и ожидающий платёж на цену курса.
func (s *Service) Checkout(ctx context.Context, actor access.Actor, input CheckoutInput) (*models.Checkout, error) {
	const op = "payment.Checkout"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	course, err := s.repo.GetCourse(ctx, input.CourseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if course.Price <= 0 {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError("course_id", "course has no price"))
	}

	product, err := s.productFor(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.SessionParams{
		PriceID:       product.PriceID,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
		CustomerEmail: actor.Email,
		Metadata: map[string]string{
			"course_id":    strconv.FormatInt(course.ID, 10),
			"user_id":      strconv.FormatInt(actor.UserID, 10),
			"course_title": course.Title,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pending, err := models.NewPayment(actor.UserID, &course.ID, nil, course.Price, models.PaymentMethodGateway)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pending.Status = models.PaymentStatusPending
	pending.GatewaySessionID = session.ID

	saved, err := s.repo.CreatePayment(ctx, *pending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created",
		slog.Int64("payment_id", saved.ID),
		slog.Int64("course_id", course.ID),
		slog.Int64("user_id", actor.UserID),
		slog.String("session_id", session.ID),
	)
	return &models.Checkout{SessionID: session.ID, CheckoutURL: session.URL, PaymentID: saved.ID}, nil
}

// productFor возвращает товар курса в шлюзе, заводя его при первой оплате.
func (s *Service) productFor(ctx context.Context, course *models.Course) (*models.GatewayProduct, error) {
	existing, err := s.repo.GetGatewayProduct(ctx, course.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	courseID := strconv.FormatInt(course.ID, 10)
	description := course.Description
	if description == "" {
		description = "Онлайн курс"
	}
	product, err := s.gateway.CreateProduct(ctx, paymentprovider.ProductParams{
		Name:        course.Title,
		Description: description,
		Metadata:    map[string]string{"course_id": courseID, "type": "course"},
	})
	if err != nil {
		return nil, err
	}
	price, err := s.gateway.CreatePrice(ctx, paymentprovider.PriceParams{
		ProductID:  product.ID,
		UnitAmount: course.Price,
		Currency:   s.currency,
		Metadata:   map[string]string{"course_id": courseID},
	})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveGatewayProduct(ctx, models.GatewayProduct{
		CourseID:  course.ID,
		ProductID: product.ID,
		PriceID:   price.ID,
	})
}

// Record регистрирует оплату наличными или переводом. Только для администратора.
func (s *Service) Record(ctx context.Context, actor access.Actor, input models.PaymentInput) (*models.Payment, error) {
	const op = "payment.Record"
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	p, err := models.NewPayment(input.UserID, input.CourseID, input.LessonID, input.Amount, input.Method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	saved, err := s.repo.CreatePayment(ctx, *p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment recorded",
		slog.Int64("payment_id", saved.ID),
		slog.Int64("user_id", saved.UserID),
		slog.String("method", string(saved.Method)),
	)
	return saved, nil
}

// List возвращает платежи: персоналу все, остальным только свои.
func (s *Service) List(ctx context.Context, actor access.Actor, filter models.PaymentFilter, page, size int) ([]*models.Payment, error) {
	const op = "payment.List"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}
	if filter.Method != "" && !filter.Method.Valid() {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError("payment_method", "unknown payment method"))
	}

	if !actor.IsStaff() {
		filter.UserID = &actor.UserID
	}
	filter.Page = models.NewPage(page, size, DefaultPageSize, MaxPageSize)

	payments, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// Get возвращает платёж владельцу, модератору или администратору.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*models.Payment, error) {
	const op = "payment.Get"
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserID != actor.UserID && !actor.IsStaff() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPermissionDenied)
	}
	return p, nil
}

// Package payment реализует HTTP-обработчики платежей и webhook платежного шлюза.
package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/http/request"
	"github.com/magabrotheeeer/lms-platform/internal/http/response"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
	"github.com/magabrotheeeer/lms-platform/internal/paymentprovider"
	paymentsvc "github.com/magabrotheeeer/lms-platform/internal/services/payment"
)

// maxWebhookBody ограничение размера тела webhook.
const maxWebhookBody = 64 << 10

var errInvalidOrdering = errors.New("ordering must be payment_date or -payment_date")

// Service описывает операции над платежами.
type Service interface {
	Checkout(ctx context.Context, actor access.Actor, input paymentsvc.CheckoutInput) (*models.Checkout, error)
	Record(ctx context.Context, actor access.Actor, input models.PaymentInput) (*models.Payment, error)
	List(ctx context.Context, actor access.Actor, filter models.PaymentFilter, page, size int) ([]*models.Payment, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*models.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Handler обрабатывает запросы платежей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := request.DecodeJSON(r, dst); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

// Checkout godoc
// @Summary Оплатить курс
// @Description Создает сессию оплаты во внешнем шлюзе и ожидающий платеж на цену курса.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body paymentsvc.CheckoutInput true "Курс и адреса возврата"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка шлюза"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /payments/checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payment.checkout")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	var req paymentsvc.CheckoutInput
	if !h.decode(w, r, log, &req) {
		return
	}

	checkout, err := h.service.Checkout(r.Context(), actor, req)
	if err != nil {
		log.Error("failed to create checkout", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(checkout))
}

// Record godoc
// @Summary Зарегистрировать платеж
// @Description Ручная регистрация оплаты наличными или переводом. Только для администратора.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PaymentInput true "Платеж"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /payments [post]
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payment.record")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	var req models.PaymentInput
	if !h.decode(w, r, log, &req) {
		return
	}

	p, err := h.service.Record(r.Context(), actor, req)
	if err != nil {
		log.Error("failed to record payment", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(p))
}

// List godoc
// @Summary Список платежей
// @Description Пользователь видит свои платежи, модератор и администратор все.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param course_id query int false "Фильтр по курсу"
// @Param lesson_id query int false "Фильтр по уроку"
// @Param user_id query int false "Фильтр по пользователю (для персонала)"
// @Param payment_method query string false "cash, transfer или external_gateway"
// @Param ordering query string false "payment_date или -payment_date"
// @Param page query int false "Номер страницы"
// @Param page_size query int false "Размер страницы (по умолчанию 20, максимум 100)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Router /payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payment.list")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		log.Warn("invalid filter", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}
	page, size, err := request.Page(r, "page_size")
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	payments, err := h.service.List(r.Context(), actor, filter, page, size)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(payments))
}

func parseFilter(r *http.Request) (models.PaymentFilter, error) {
	var (
		f   models.PaymentFilter
		err error
	)
	if f.CourseID, err = request.QueryID(r, "course_id"); err != nil {
		return f, err
	}
	if f.LessonID, err = request.QueryID(r, "lesson_id"); err != nil {
		return f, err
	}
	if f.UserID, err = request.QueryID(r, "user_id"); err != nil {
		return f, err
	}
	f.Method = models.PaymentMethod(r.URL.Query().Get("payment_method"))

	switch ordering := strings.TrimSpace(r.URL.Query().Get("ordering")); ordering {
	case "", "-payment_date":
	case "payment_date":
		f.Ascending = true
	default:
		return f, errInvalidOrdering
	}
	return f, nil
}

// Get godoc
// @Summary Получить платеж
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID платежа"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Чужой платеж"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Router /payments/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payment.get")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		log.Error("failed to read payment", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}

// Webhook godoc
// @Summary Webhook платежного шлюза
// @Description Принимает события шлюза. Подпись передается в заголовке Stripe-Signature.
// @Tags Payments
// @Accept json
// @Success 200
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /payments/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payment.webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(paymentprovider.SignatureHeader)); err != nil {
		log.Error("failed to handle webhook", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

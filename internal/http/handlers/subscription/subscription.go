// Package subscription реализует HTTP-обработчики подписок на курсы.
package subscription

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/http/request"
	"github.com/magabrotheeeer/lms-platform/internal/http/response"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Service описывает операции над подписками.
type Service interface {
	Subscribe(ctx context.Context, actor access.Actor, courseID int64) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, actor access.Actor, courseID int64) (*models.Subscription, error)
	List(ctx context.Context, actor access.Actor, page, limit int) ([]*models.Subscription, error)
}

// Handler обрабатывает запросы подписок.
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

// SubscribeRequest тело запроса подписки.
type SubscribeRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// Subscribe godoc
// @Summary Подписаться на курс
// @Description Повторная подписка не создает новую запись.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubscribeRequest true "Курс"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscriptions [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	actor, _ := middlewarectx.ActorFrom(r.Context())

	var req SubscribeRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sub, err := h.service.Subscribe(r.Context(), actor, req.CourseID)
	if err != nil {
		log.Error("failed to subscribe", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(sub))
}

// Unsubscribe godoc
// @Summary Отписаться от курса
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param course_id path int true "ID курса"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Активной подписки нет"
// @Router /subscriptions/{course_id} [delete]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.unsubscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	actor, _ := middlewarectx.ActorFrom(r.Context())

	courseID, err := request.IDParam(r, "course_id")
	if err != nil {
		log.Warn("failed to decode course_id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	sub, err := h.service.Unsubscribe(r.Context(), actor, courseID)
	if err != nil {
		log.Warn("failed to unsubscribe", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(sub))
}

// List godoc
// @Summary Подписки пользователя
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Номер страницы"
// @Param limit query int false "Размер страницы (по умолчанию 20, максимум 100)"
// @Success 200 {object} response.Response
// @Router /subscriptions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	actor, _ := middlewarectx.ActorFrom(r.Context())

	page, limit, err := request.Page(r, "limit")
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	subs, err := h.service.List(r.Context(), actor, page, limit)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(subs))
}

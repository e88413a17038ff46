// Package course реализует HTTP-обработчики курсов.
package course

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

// Service описывает бизнес-логику курсов.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input models.CourseInput) (*models.Course, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*models.Course, error)
	List(ctx context.Context, actor access.Actor, page, size int) ([]*models.Course, error)
	Update(ctx context.Context, actor access.Actor, id int64, upd models.CourseUpdate) (*models.Course, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
}

// Handler обрабатывает запросы к курсам.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// PriceResponse цена курса.
type PriceResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create godoc
// @Summary Создать курс
// @Description Создает курс, владельцем становится текущий пользователь. Модераторам запрещено.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CourseInput true "Данные курса"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /courses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.create")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	var req models.CourseInput
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

	c, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		log.Error("failed to create course", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(c))
}

// Get godoc
// @Summary Получить курс
// @Description Возвращает курс с числом уроков.
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.get")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	c, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		log.Error("failed to read course", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(c))
}

// Price godoc
// @Summary Цена курса
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Success 200 {object} PriceResponse
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{id}/price [get]
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.price")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	c, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		log.Error("failed to read course", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, PriceResponse{ID: c.ID, Title: c.Title, Description: c.Description, Price: c.Price})
}

// List godoc
// @Summary Список курсов
// @Description Администраторы и модераторы видят все курсы, остальные только свои.
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Номер страницы"
// @Param page_size query int false "Размер страницы (по умолчанию 10, максимум 50)"
// @Success 200 {object} response.Response
// @Router /courses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.list")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	page, size, err := request.Page(r, "page_size")
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	courses, err := h.service.List(r.Context(), actor, page, size)
	if err != nil {
		log.Error("failed to list courses", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(courses))
}

// Update godoc
// @Summary Обновить курс
// @Description Частичное обновление. Подписчики получают письмо не чаще раза в четыре часа.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Param request body models.CourseUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /courses/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.update")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	var req models.CourseUpdate
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

	c, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		log.Error("failed to update course", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(c))
}

// Delete godoc
// @Summary Удалить курс
// @Description Удаляет курс вместе с уроками. Модераторам запрещено.
// @Tags Courses
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Success 204
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.course.delete")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		log.Error("failed to delete course", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	log.Info("course deleted", slog.Int64("course_id", id))
	w.WriteHeader(http.StatusNoContent)
}

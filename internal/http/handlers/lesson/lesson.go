// Package lesson реализует HTTP-обработчики уроков.
package lesson

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

// Service описывает бизнес-логику уроков.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input models.LessonInput) (*models.Lesson, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*models.Lesson, error)
	List(ctx context.Context, actor access.Actor, courseID *int64, page, size int) ([]*models.Lesson, error)
	Update(ctx context.Context, actor access.Actor, id int64, upd models.LessonUpdate) (*models.Lesson, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
}

// Handler обрабатывает запросы к урокам.
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

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Warn("bad request", sl.Err(err))
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, response.Error(err.Error()))
}

// Create godoc
// @Summary Создать урок
// @Description Создает урок в курсе. Разрешено владельцу курса и администратору.
// @Description Ссылка на видео допускается только с youtube.com или youtu.be.
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LessonInput true "Данные урока"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /lessons [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.lesson.create")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	var req models.LessonInput
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

	l, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		log.Error("failed to create lesson", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(l))
}

// Get godoc
// @Summary Получить урок
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID урока"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /lessons/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.lesson.get")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		h.badRequest(w, r, log, err)
		return
	}

	l, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		log.Error("failed to read lesson", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(l))
}

// List godoc
// @Summary Список уроков
// @Description Администраторы и модераторы видят все уроки, остальные только свои.
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param course_id query int false "Фильтр по курсу"
// @Param page query int false "Номер страницы"
// @Param page_size query int false "Размер страницы (по умолчанию 15, максимум 100)"
// @Success 200 {object} response.Response
// @Router /lessons [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.lesson.list")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	courseID, err := request.QueryID(r, "course_id")
	if err != nil {
		h.badRequest(w, r, log, err)
		return
	}
	page, size, err := request.Page(r, "page_size")
	if err != nil {
		h.badRequest(w, r, log, err)
		return
	}

	lessons, err := h.service.List(r.Context(), actor, courseID, page, size)
	if err != nil {
		log.Error("failed to list lessons", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(lessons))
}

// Update godoc
// @Summary Обновить урок
// @Description Частичное обновление. Подписчики курса получают письмо не чаще раза в четыре часа.
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID урока"
// @Param request body models.LessonUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /lessons/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.lesson.update")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		h.badRequest(w, r, log, err)
		return
	}

	var req models.LessonUpdate
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

	l, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		log.Error("failed to update lesson", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(l))
}

// Delete godoc
// @Summary Удалить урок
// @Tags Lessons
// @Security BearerAuth
// @Param id path int true "ID урока"
// @Success 204
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /lessons/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.lesson.delete")
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		h.badRequest(w, r, log, err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		log.Error("failed to delete lesson", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	log.Info("lesson deleted", slog.Int64("lesson_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Package user реализует административные операции над пользователями.
package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/http/request"
	"github.com/magabrotheeeer/lms-platform/internal/http/response"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Service снимает блокировку с пользователя.
type Service interface {
	Unblock(ctx context.Context, actor access.Actor, userID int64) (*models.User, error)
}

// Handler обрабатывает запросы к пользователям.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Unblock godoc
// @Summary Разблокировать пользователя
// @Description Снова активирует учетную запись, отключенную за неактивность, и отправляет письмо. Только для администратора.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id}/unblock [post]
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.unblock"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	actor, _ := middlewarectx.ActorFrom(r.Context())

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	user, err := h.service.Unblock(r.Context(), actor, id)
	if err != nil {
		log.Error("failed to unblock user", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Package auth реализует HTTP-обработчики регистрации, входа и профиля
// текущего пользователя.
package auth

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

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, email, password, firstName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Me(ctx context.Context, actor access.Actor) (*models.User, error)
}

// Handler обрабатывает запросы аутентификации.
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

// RegisterRequest данные регистрации. Пароль не короче 8 символов.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=150"`
}

// LoginRequest учетные данные.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse токен доступа и профиль.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := request.DecodeJSON(r, dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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

// Register godoc
// @Summary Регистрация пользователя
// @Description Создает учетную запись с ролью пользователя и отправляет приветственное письмо.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные регистрации"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или email занят"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req RegisterRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.FirstName)
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Login godoc
// @Summary Авторизация пользователя
// @Description Проверяет email и пароль, возвращает JWT. Деактивированным пользователям вход запрещен.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Учетная запись деактивирована"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req LoginRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, LoginResponse{Token: token, User: user})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Router /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	actor, _ := middlewarectx.ActorFrom(r.Context())

	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

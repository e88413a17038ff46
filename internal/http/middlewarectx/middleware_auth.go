// Package middlewarectx содержит HTTP middleware аутентификации и
// ограничения частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization, загружает
// пользователя и кладёт в контекст access.Actor с ролью, вычисленной по
// актуальным флагам учётной записи.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/http/response"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// ActorKey ключ access.Actor в контексте.
const ActorKey Key = "actor"

// UserGetter загружает пользователя по ID из токена.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// WithActor кладёт actor в контекст.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFrom достаёт actor из контекста.
func ActorFrom(ctx context.Context) (access.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(access.Actor)
	return actor, ok && actor.Authenticated()
}

// JWTMiddleware возвращает middleware, который пропускает только запросы с
// действительным токеном активного пользователя.
func JWTMiddleware(maker jwt.Maker, users UserGetter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := maker.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID)
			if errors.Is(err, models.ErrNotFound) {
				log.Warn("token user not found", slog.Int64("user_id", claims.UserID))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			if err != nil {
				log.Error("failed to load user", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
				return
			}
			if !user.IsActive {
				log.Warn("inactive user rejected", slog.Int64("user_id", user.ID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error(models.ErrAccountInactive.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), access.NewActor(user))))
		})
	}
}

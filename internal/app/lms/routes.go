package lms

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	authhandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/auth"
	coursehandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/course"
	"github.com/magabrotheeeer/lms-platform/internal/http/handlers/health"
	lessonhandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/lesson"
	paymenthandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/payment"
	subhandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/subscription"
	userhandler "github.com/magabrotheeeer/lms-platform/internal/http/handlers/user"
	"github.com/magabrotheeeer/lms-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
)

// Services набор сервисов, которые обслуживает HTTP API.
type Services struct {
	Auth         authhandler.Service
	Users        userhandler.Service
	Courses      coursehandler.Service
	Lessons      lessonhandler.Service
	Subscription subhandler.Service
	Payments     paymenthandler.Service
	UserGetter   middlewarectx.UserGetter
	Health       map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, jwtMaker jwt.Maker, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	auth := authhandler.New(logger, svc.Auth)
	users := userhandler.New(logger, svc.Users)
	courses := coursehandler.New(logger, svc.Courses)
	lessons := lessonhandler.New(logger, svc.Lessons)
	subs := subhandler.New(logger, svc.Subscription)
	payments := paymenthandler.New(logger, svc.Payments)
	limit := middlewarectx.RateLimitMiddleware(logger, cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/auth/register", auth.Register)
			r.Post("/auth/login", auth.Login)
		})

		// Webhook платежного шлюза проверяется подписью, а не токеном.
		r.Post("/payments/webhook", payments.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, svc.UserGetter, logger))
			r.Use(limit)

			r.Get("/users/me", auth.Me)
			r.Post("/users/{id}/unblock", users.Unblock)

			r.Get("/courses", courses.List)
			r.Post("/courses", courses.Create)
			r.Get("/courses/{id}", courses.Get)
			r.Patch("/courses/{id}", courses.Update)
			r.Delete("/courses/{id}", courses.Delete)
			r.Get("/courses/{id}/price", courses.Price)

			r.Get("/lessons", lessons.List)
			r.Post("/lessons", lessons.Create)
			r.Get("/lessons/{id}", lessons.Get)
			r.Patch("/lessons/{id}", lessons.Update)
			r.Delete("/lessons/{id}", lessons.Delete)

			r.Get("/subscriptions", subs.List)
			r.Post("/subscriptions", subs.Subscribe)
			r.Delete("/subscriptions/{course_id}", subs.Unsubscribe)

			r.Get("/payments", payments.List)
			r.Post("/payments", payments.Record)
			r.Post("/payments/checkout", payments.Checkout)
			r.Get("/payments/{id}", payments.Get)
		})
	})

	r.Handle("/health", health.New(logger, svc.Health))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

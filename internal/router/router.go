// Package router wires the HTTP surface (C12): chi routing, go-chi/cors,
// request logging and panic recovery middleware, and the session gate on
// every /admin/** and /logout route.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/strv-go/newsletter-publisher/internal/handler"
	"github.com/strv-go/newsletter-publisher/internal/middleware"
	"github.com/strv-go/newsletter-publisher/internal/session"
)

// New builds the fully wired chi router.
func New(deps *handler.Dependencies, sessions *session.Store, logger *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health_check", deps.HealthCheck)

	r.Post("/subscriptions", deps.Subscribe)
	r.Get("/subscriptions/confirm", deps.ConfirmSubscription)

	r.Get("/", deps.Home)
	r.Get("/login", deps.LoginPage)
	r.Post("/login", deps.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions, logger))

		r.Post("/logout", deps.Logout)
		r.Get("/admin/dashboard", deps.Dashboard)
		r.Get("/admin/password", deps.PasswordPage)
		r.Post("/admin/password", deps.ChangePassword)
		r.Get("/admin/newsletters", deps.NewslettersPage)
		r.Post("/admin/newsletters", deps.PublishNewsletter)
	})

	return r
}

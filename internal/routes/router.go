package routes

import (
	"log/slog"

	"hangman_bot/internal/controllers"
	authmw "hangman_bot/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SSO is everything the admin API needs from the SSO service.
type SSO interface {
	controllers.SSOClient
	authmw.Authorizer
}

// SetupRouter builds the admin API. With a nil sso the word routes are
// served without authentication, which is only meant for local runs.
func SetupRouter(log *slog.Logger, words controllers.WordServicer, sso SSO) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	wordController := controllers.NewWordController(words, log)

	r.Route("/api/admin", func(r chi.Router) {
		if sso != nil {
			authController := controllers.NewAuthController(log, sso)
			r.Post("/login", authController.Login)
		}

		r.Route("/words", func(r chi.Router) {
			if sso != nil {
				auth := authmw.NewAuthMiddleware(sso)
				r.Use(auth.ValidateToken, auth.RequireAdmin)
			}
			r.Get("/", wordController.List)
			r.Post("/", wordController.Create)
			r.Post("/multi", wordController.CreateMulti)
		})
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pvserra/go-user-rating-service/internal/api/account"
	"github.com/pvserra/go-user-rating-service/internal/api/auth"
	"github.com/pvserra/go-user-rating-service/internal/api/vote"
)

// Config carries the handlers and middleware the router wires together.
type Config struct {
	AccountHandler         account.Handler
	AuthHandler            *auth.AuthHandler
	VoteHandler            vote.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter builds the API route tree. Server-wide middleware (request id,
// logging, recoverer) is applied in main before this router is mounted.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Unmodified-Since"},
		ExposedHeaders:   []string{"Last-Modified"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: registration, login, and read-only lookups.
		r.Group(func(r chi.Router) {
			r.Post("/users", cfg.AccountHandler.CreateUser)
			r.Post("/users/login", cfg.AuthHandler.Login)
			r.Get("/users", cfg.AccountHandler.ListUsers)
			r.Get("/users/nickname/{nickname}", cfg.AccountHandler.GetUserByNickname)
			r.Get("/users/{userID}", cfg.AccountHandler.GetUser)
		})

		// Protected routes: anything that mutates an account.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Put("/users/rating", cfg.VoteHandler.CastVote)
			r.Put("/users/{userID}", cfg.AccountHandler.UpdateUser)
			r.Delete("/users/{userID}", cfg.AccountHandler.DeleteUser)
		})
	})

	return r
}

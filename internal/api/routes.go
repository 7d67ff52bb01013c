package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"whisper.share/internal/service"
)

func SetupRouter(svc *service.Service, auth Authenticator) *chi.Mux {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth(auth))

		r.Route("/secrets", func(r chi.Router) {
			r.Post("/", h.CreateSecret)
			r.Get("/{token}", h.RevealSecret)
		})
	})

	// Frontend
	r.Get("/", h.Index)
	r.Get("/s/{token}", h.RevealPage)

	return r
}

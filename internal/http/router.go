package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig carries the handlers and middleware the router mounts. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Reservations *ReservationHandler
	Recurring    *RecurringHandler
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	for _, middleware := range cfg.Middleware {
		if middleware != nil {
			router.Use(middleware)
		}
	}

	router.Route("/api", func(api chi.Router) {
		if cfg.Recurring != nil {
			api.Post("/reservations/recurring", cfg.Recurring.Create)
			api.Post("/reservations/recurring/{id}/cancel", cfg.Recurring.Cancel)
		}

		if cfg.Reservations != nil {
			api.Post("/reservations", cfg.Reservations.Create)
			api.Post("/reservations/{id}/cancel", cfg.Reservations.Cancel)
			api.Post("/reservations/{id}/confirm", cfg.Reservations.Confirm)
			api.Get("/resources/{id}/availability", cfg.Reservations.Availability)
			api.Get("/users/{id}/reservations/active", cfg.Reservations.ListActive)
		}
	})

	return router
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inboxlab/inboxd/internal/handler"
	"github.com/inboxlab/inboxd/internal/middleware"
	"github.com/inboxlab/inboxd/internal/realtime"
)

func setupRouter(h *handler.Handler, hub *realtime.Hub, adminToken string) http.Handler {
	r := chi.NewRouter()

	// Provider-facing webhook endpoints.
	r.Get("/webhook", h.VerifyWebhook)
	r.Post("/webhook", h.ReceiveWebhook)

	// Dashboard API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)
		r.Get("/messages", h.ListMessages)

		// Mutating operations require the admin token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(adminToken))
			r.Post("/reply", h.Reply)
			r.Delete("/messages/{id}", h.DeleteMessage)
		})
	})

	// Realtime fanout channel for dashboard sessions.
	r.Get("/ws", hub.ServeHTTP)

	return r
}

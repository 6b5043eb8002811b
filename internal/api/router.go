package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/devices", s.handleListDevices)
		r.Post("/pairing-code", s.handleCreatePairingCode)

		r.Route("/cache/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetCache)
			r.Put("/", s.handleSetCache)
		})

		r.Post("/sync/force", s.handleForceSync)

		// Device hub
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

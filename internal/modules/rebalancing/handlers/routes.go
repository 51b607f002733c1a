package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalance", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/latest", h.HandleGetLatest)
		r.Get("/{run_id}", h.HandleGetRun)
		r.Post("/{run_id}/approve", h.HandleApprove)
		r.Post("/{run_id}/lock", h.HandleLock)
	})
}

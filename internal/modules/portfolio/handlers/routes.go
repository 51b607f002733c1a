package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)
		r.Put("/targets", h.HandleUpdateStockTargets)
		r.Put("/sector-targets", h.HandleUpdateSectorTargets)
	})
}

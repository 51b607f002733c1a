package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers scoring routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scoring", func(r chi.Router) {
		r.Get("/config", h.HandleGetConfig)
		r.Post("/stocks", h.HandleScoreStocks)   // Score a peer set
		r.Post("/sectors", h.HandleScoreSectors) // Score sectors against each other
	})
}

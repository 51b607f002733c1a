package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers sector and stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sectors", func(r chi.Router) {
		r.Get("/", h.HandleListSectors)
		r.Post("/refresh", h.HandleRefresh)
		r.Get("/{id}", h.HandleGetSector)
		r.Get("/{id}/stocks", h.HandleGetSectorStocks)
	})

	r.Get("/stocks/{ticker}", h.HandleGetStock)
}

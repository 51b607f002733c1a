// Package handlers provides HTTP handlers for the portfolio summary and targets.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// PortfolioService is the subset of the portfolio service used by the handlers
type PortfolioService interface {
	GetSummary() (*portfolio.Summary, error)
	UpdateStockTargets(updates []portfolio.StockTargetUpdate) ([]string, error)
	UpdateSectorTargets(updates []portfolio.SectorTargetUpdate) error
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio summary")
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get portfolio summary")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdateStockTargets handles PUT /api/portfolio/targets
func (h *Handler) HandleUpdateStockTargets(w http.ResponseWriter, r *http.Request) {
	var updates []portfolio.StockTargetUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	skipped, err := h.service.UpdateStockTargets(updates)
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"status":  "success",
			"updated": len(updates) - len(skipped),
			"skipped": skipped,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdateSectorTargets handles PUT /api/portfolio/sector-targets
func (h *Handler) HandleUpdateSectorTargets(w http.ResponseWriter, r *http.Request) {
	var updates []portfolio.SectorTargetUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if err := h.service.UpdateSectorTargets(updates); err != nil {
		h.writeUpdateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"status":  "success",
			"updated": len(updates),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, err error) {
	if errors.Is(err, portfolio.ErrInvalidTarget) {
		h.writeError(w, http.StatusBadRequest, "INVALID_TARGET", err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Failed to update targets")
	h.writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to update targets")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}

// Package handlers provides HTTP handlers for scored sectors and stocks.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// DefaultPeriod is used when the sector listing has no period parameter
const DefaultPeriod = "3m"

// UniverseService is the subset of the universe service used by the handlers
type UniverseService interface {
	GetScoredSectors(period string) ([]universe.SectorView, error)
	GetSectorDetails(sectorID int) (*universe.SectorDetail, error)
	GetScoredStocks(sectorID int) ([]scoring.ScoredStock, error)
	GetStockDetails(ticker string) (*universe.StockDetail, error)
	RefreshPerformance() (*universe.RefreshResult, error)
}

// Handler handles sector and stock HTTP requests
type Handler struct {
	service UniverseService
	log     zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(service UniverseService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "universe").Logger(),
	}
}

// HandleListSectors handles GET /api/sectors
func (h *Handler) HandleListSectors(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = DefaultPeriod
	}

	sectors, err := h.service.GetScoredSectors(period)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get sectors")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": sectors,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"period":    period,
			"count":     len(sectors),
		},
	})
}

// HandleGetSector handles GET /api/sectors/{id}
func (h *Handler) HandleGetSector(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sectorID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetSectorDetails(id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get sector")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(detail))
}

// HandleGetSectorStocks handles GET /api/sectors/{id}/stocks
func (h *Handler) HandleGetSectorStocks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sectorID(w, r)
	if !ok {
		return
	}

	stocks, err := h.service.GetScoredStocks(id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get sector stocks")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(stocks))
}

// HandleGetStock handles GET /api/stocks/{ticker}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetStockDetails(chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get stock")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(detail))
}

// HandleRefresh handles POST /api/sectors/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RefreshPerformance()
	if err != nil {
		h.writeServiceError(w, err, "Failed to refresh performance")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

func (h *Handler) sectorID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_SECTOR_ID", "Sector id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, universe.ErrInvalidPeriod):
		h.writeError(w, http.StatusBadRequest, "INVALID_PERIOD", err.Error())
	case errors.Is(err, universe.ErrSectorNotFound):
		h.writeError(w, http.StatusNotFound, "SECTOR_NOT_FOUND", err.Error())
	case errors.Is(err, universe.ErrStockNotFound):
		h.writeError(w, http.StatusNotFound, "STOCK_NOT_FOUND", err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", msg)
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
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

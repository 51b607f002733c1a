// Package handlers provides HTTP handlers for the audit trail.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/audit"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles audit HTTP requests
type Handler struct {
	repo *audit.Repository
	log  zerolog.Logger
}

// NewHandler creates a new audit handler
func NewHandler(repo *audit.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "audit").Logger(),
	}
}

// RegisterRoutes registers audit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/audit", h.HandleList)
}

// HandleList handles GET /api/audit?page=1&limit=50
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", audit.DefaultPageSize)
	if page < 1 || limit < 1 || limit > audit.MaxPageSize {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]string{
				"message": "page must be >= 1 and limit between 1 and 100",
				"code":    "INVALID_PAGING",
			},
		})
		return
	}

	entries, err := h.repo.List(page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list audit entries")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"message": "Failed to list audit entries", "code": "INTERNAL"},
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"page":      page,
			"limit":     limit,
			"count":     len(entries),
		},
	})
}

// queryInt parses an integer query parameter; unparsable values yield -1
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

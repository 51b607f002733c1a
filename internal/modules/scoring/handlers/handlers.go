// Package handlers provides HTTP handlers for ad hoc scoring.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// Scorer is the subset of the scoring engine used by the handlers
type Scorer interface {
	Config() scoring.Config
	ScoreStocks(peers []scoring.StockRaw) []scoring.ScoredStock
	ScoreSectors(sectors []scoring.SectorRaw) []scoring.SectorScored
}

// Handler handles scoring HTTP requests
type Handler struct {
	scorer Scorer
	log    zerolog.Logger
}

// NewHandler creates a new scoring handler
func NewHandler(scorer Scorer, log zerolog.Logger) *Handler {
	return &Handler{
		scorer: scorer,
		log:    log.With().Str("handler", "scoring").Logger(),
	}
}

// ScoreStocksRequest is a peer set of stocks from a single sector
type ScoreStocksRequest struct {
	Stocks []scoring.StockRaw `json:"stocks" validate:"required,min=1,max=500,dive"`
}

// ScoreSectorsRequest is a set of sectors to score against each other
type ScoreSectorsRequest struct {
	Sectors []scoring.SectorRaw `json:"sectors" validate:"required,min=1,max=500"`
}

// ConfigResponse describes the weights and thresholds the engine scores with
type ConfigResponse struct {
	StockWeights      scoring.StockWeights      `json:"stock_weights"`
	SectorWeights     scoring.SectorWeights     `json:"sector_weights"`
	TrendScores       map[scoring.Trend]float64 `json:"trend_scores"`
	UnknownTrendScore float64                   `json:"unknown_trend_score"`
	VolatilityScore   float64                   `json:"volatility_score"`
	LeaderThreshold   float64                   `json:"leader_threshold"`
	LaggardThreshold  float64                   `json:"laggard_threshold"`
}

// HandleGetConfig handles GET /api/scoring/config
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.scorer.Config()

	h.writeJSON(w, http.StatusOK, envelope(ConfigResponse{
		StockWeights:      cfg.Stock,
		SectorWeights:     cfg.Sector,
		TrendScores:       cfg.TrendScores,
		UnknownTrendScore: cfg.UnknownTrendScore,
		VolatilityScore:   cfg.VolatilityScore,
		LeaderThreshold:   cfg.LeaderThreshold,
		LaggardThreshold:  cfg.LaggardThreshold,
	}))
}

// HandleScoreStocks handles POST /api/scoring/stocks
// Scores a caller-supplied peer set without touching stored data.
func (h *Handler) HandleScoreStocks(w http.ResponseWriter, r *http.Request) {
	var req ScoreStocksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if err := domain.ValidateRecord(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PEERS", err.Error())
		return
	}

	sectorID := req.Stocks[0].SectorID
	for _, s := range req.Stocks {
		if s.SectorID != sectorID {
			h.writeError(w, http.StatusBadRequest, "MIXED_SECTORS", "Peers must belong to the same sector")
			return
		}
	}

	scored := h.scorer.ScoreStocks(req.Stocks)
	h.log.Debug().Int("sector_id", sectorID).Int("stocks", len(scored)).Msg("Scored ad hoc peer set")

	h.writeJSON(w, http.StatusOK, envelope(scored))
}

// HandleScoreSectors handles POST /api/scoring/sectors
func (h *Handler) HandleScoreSectors(w http.ResponseWriter, r *http.Request) {
	var req ScoreSectorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if err := domain.ValidateRecord(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_SECTORS", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.scorer.ScoreSectors(req.Sectors)))
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

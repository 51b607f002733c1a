// Package portfolio provides holdings storage, valuation against the latest
// universe prices, the portfolio summary and target weight updates.
package portfolio

import (
	"errors"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
)

// Errors returned by the portfolio service
var (
	ErrHoldingNotFound = errors.New("holding not found")
	ErrInvalidTarget   = errors.New("invalid target")
)

// HoldingRecord is a row of the holdings table
type HoldingRecord struct {
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
	Ticker       string    `json:"ticker" yaml:"ticker"`
	SectorID     int       `json:"sector_id" yaml:"sector_id"`
	Quantity     int       `json:"quantity" yaml:"quantity"`
	AvgCost      float64   `json:"avg_cost" yaml:"avg_cost"`
	TargetWeight float64   `json:"target_weight" yaml:"target_weight"`
}

// HoldingView is a valued holding as shown in the portfolio summary
type HoldingView struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name"`
	Sector           string  `json:"sector"`
	PriceDate        string  `json:"price_date,omitempty"`
	SectorID         int     `json:"sector_id"`
	Quantity         int     `json:"quantity"`
	AvgCost          float64 `json:"avg_cost"`
	CurrentPrice     float64 `json:"current_price"`
	CurrentValueCr   float64 `json:"current_value_cr"`
	PortfolioWeight  float64 `json:"portfolio_weight"`
	TargetWeight     float64 `json:"target_weight"`
	Drift            float64 `json:"drift"`
	PnLPct           float64 `json:"pnl_pct"`
	LiquidityWarning bool    `json:"liquidity_warning"`
	DriftAlert       bool    `json:"drift_alert"`
}

// SectorExposureView is a sector's exposure with its rounded drift
type SectorExposureView struct {
	domain.SectorExposure
	Drift      float64 `json:"drift"`
	DriftAlert bool    `json:"drift_alert"`
}

// Summary is the full portfolio view: holdings, exposure, drift and violations
type Summary struct {
	Holdings       []HoldingView           `json:"holdings"`
	SectorExposure []SectorExposureView    `json:"sector_exposure"`
	Violations     []allocation.Violation  `json:"violations"`
	StalePrices    []string                `json:"stale_prices,omitempty"`
	Drift          allocation.DriftSummary `json:"drift"`
	TotalValueCr   float64                 `json:"total_value_cr"`
	TotalPnLPct    float64                 `json:"total_pnl_pct"`
}

// StockTargetUpdate sets the target weight of one held stock
type StockTargetUpdate struct {
	Ticker       string  `json:"ticker" validate:"required"`
	TargetWeight float64 `json:"target_weight" validate:"gte=0,lte=100"`
}

// SectorTargetUpdate sets the target weight of one sector
type SectorTargetUpdate struct {
	SectorID     int     `json:"sector_id" validate:"gt=0"`
	TargetWeight float64 `json:"target_weight" validate:"gte=0,lte=100"`
}

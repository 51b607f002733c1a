// Package universe provides access to the sector and stock universe, price
// history, relative performance refresh and scored views of both.
package universe

import (
	"errors"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/scoring"
)

// Lookup errors
var (
	ErrSectorNotFound = errors.New("sector not found")
	ErrStockNotFound  = errors.New("stock not found")
	ErrInvalidPeriod  = errors.New("invalid period")
)

// DateLayout is the storage format of every date column
const DateLayout = "2006-01-02"

// BenchmarkIndex is the market index relative performance is measured against
const BenchmarkIndex = "^NSEI"

// Limits for history endpoints
const (
	SectorHistoryLimit = 24
	PriceHistoryLimit  = 180
)

// Periods accepted by the sector listing
var Periods = []string{"1m", "3m", "6m", "1y"}

// Sector is a row of the sectors table
type Sector struct {
	Name      string  `json:"name" yaml:"name"`
	NiftyCode string  `json:"nifty_code" yaml:"nifty_code"`
	ID        int     `json:"id" yaml:"id"`
	GVAWeight float64 `json:"gva_weight" yaml:"gva_weight"`
}

// SectorPerformance is one dated performance observation for a sector
type SectorPerformance struct {
	RelPerf1M *float64      `json:"rel_perf_1m,omitempty" yaml:"rel_perf_1m"`
	RelPerf3M *float64      `json:"rel_perf_3m,omitempty" yaml:"rel_perf_3m"`
	RelPerf6M *float64      `json:"rel_perf_6m,omitempty" yaml:"rel_perf_6m"`
	RelPerf1Y *float64      `json:"rel_perf_1y,omitempty" yaml:"rel_perf_1y"`
	Score     *float64      `json:"score,omitempty" yaml:"score"`
	Date      string        `json:"date" yaml:"date"`
	Trend     scoring.Trend `json:"trend" yaml:"trend"`
	SectorID  int           `json:"sector_id" yaml:"-"`
}

// ForPeriod returns the relative performance for a listing period
func (p SectorPerformance) ForPeriod(period string) *float64 {
	switch period {
	case "1m":
		return p.RelPerf1M
	case "3m":
		return p.RelPerf3M
	case "6m":
		return p.RelPerf6M
	case "1y":
		return p.RelPerf1Y
	}
	return nil
}

// Stock is a row of the stocks table
type Stock struct {
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty" yaml:"revenue_growth"`
	ROE            *float64 `json:"roe,omitempty" yaml:"roe"`
	ROIC           *float64 `json:"roic,omitempty" yaml:"roic"`
	Ticker         string   `json:"ticker" yaml:"ticker"`
	Name           string   `json:"name" yaml:"name"`
	SectorID       int      `json:"sector_id" yaml:"sector_id"`
	MarketCapCr    float64  `json:"market_cap_cr" yaml:"market_cap_cr"`
	LiquidityScore float64  `json:"liquidity_score" yaml:"liquidity_score"`
}

// PricePoint is one daily close for a stock
type PricePoint struct {
	RelStrength1M *float64 `json:"rel_strength_1m,omitempty" yaml:"-"`
	RelStrength3M *float64 `json:"rel_strength_3m,omitempty" yaml:"-"`
	Ticker        string   `json:"-" yaml:"-"`
	Date          string   `json:"date" yaml:"date"`
	Close         float64  `json:"close" yaml:"close"`
	Volume        int64    `json:"volume" yaml:"volume"`
}

// IndexPrice is one daily close for a market index
type IndexPrice struct {
	Code  string  `json:"code" yaml:"-"`
	Date  string  `json:"date" yaml:"date"`
	Close float64 `json:"close" yaml:"close"`
}

// SectorView is a scored sector as listed by the API
type SectorView struct {
	scoring.SectorScored
	RelPerf *float64 `json:"rel_perf"`
	AsOf    string   `json:"as_of,omitempty"`
	Period  string   `json:"period"`
}

// SectorDetail is a scored sector with its performance history, newest first
type SectorDetail struct {
	SectorView
	History []SectorPerformance `json:"history"`
}

// StockDetail is a scored stock with its price history, oldest first
type StockDetail struct {
	scoring.ScoredStock
	LastPriceDate string       `json:"last_price_date,omitempty"`
	PriceHistory  []PricePoint `json:"price_history"`
	PeerCount     int          `json:"peer_count"`
}

// RefreshResult summarises a relative performance refresh
type RefreshResult struct {
	AsOf    time.Time `json:"as_of"`
	Sectors int       `json:"sectors"`
	Stocks  int       `json:"stocks"`
}

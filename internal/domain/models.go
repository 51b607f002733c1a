// Package domain provides core domain models and types.
package domain

import (
	"math"
)

// CroreUnit is the number of currency units in one crore.
// All portfolio and trade values are expressed in crore.
const CroreUnit = 10_000_000.0

// MinTradeSizeCr is the smallest trade value (in crore) worth suggesting.
// It is a fixed constant and is not read from the constraints table.
const MinTradeSizeCr = 0.5

// Constraint defaults used when a key is missing from the constraints table
const (
	DefaultMaxStockWeight  = 7.5
	DefaultMaxSectorCap    = 30.0
	DefaultMaxTradesPerRun = 10
)

// Constraint keys recognised in the constraints table
const (
	ConstraintMaxStockWeight  = "max_stock_weight"
	ConstraintMaxSectorCap    = "max_sector_cap"
	ConstraintMaxTradesPerRun = "max_trades_per_run"
)

// Binding constraint labels attached to clipped suggestions
const (
	BindingMaxStockWeight  = "max_stock_weight"
	BindingHoldingQuantity = "holding_quantity"
)

// Category classifies a stock relative to its sector peers
type Category string

const (
	CategoryLeader  Category = "Leader"
	CategoryLaggard Category = "Laggard"
	CategoryNeutral Category = "Neutral"
)

// TradeAction is the side of a suggested trade
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// SuggestionStatus is the lifecycle status of a persisted suggestion
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusApproved SuggestionStatus = "approved"
	StatusLocked   SuggestionStatus = "locked"
)

// Holding is a single portfolio position.
// CurrentValue is in crore; PortfolioWeight is a percentage of total portfolio value.
type Holding struct {
	Ticker          string  `json:"ticker" msgpack:"ticker" validate:"required"`
	SectorID        int     `json:"sector_id" msgpack:"sector_id" validate:"gt=0"`
	Quantity        int     `json:"quantity" msgpack:"quantity" validate:"gte=0"`
	AvgCost         float64 `json:"avg_cost" msgpack:"avg_cost" validate:"gte=0"`
	CurrentPrice    float64 `json:"current_price" msgpack:"current_price" validate:"gte=0"`
	CurrentValue    float64 `json:"current_value_cr" msgpack:"current_value_cr" validate:"gte=0"`
	PortfolioWeight float64 `json:"portfolio_weight" msgpack:"portfolio_weight" validate:"gte=0"`
}

// SectorExposure is the actual versus target weight of one sector
type SectorExposure struct {
	SectorID     int     `json:"sector_id" msgpack:"sector_id" validate:"gt=0"`
	SectorName   string  `json:"sector_name" msgpack:"sector_name"`
	ActualWeight float64 `json:"actual_weight" msgpack:"actual_weight" validate:"gte=0"`
	TargetWeight float64 `json:"target_weight" msgpack:"target_weight" validate:"gte=0"`
}

// Drift returns the signed difference between actual and target weight
func (e SectorExposure) Drift() float64 {
	return e.ActualWeight - e.TargetWeight
}

// StockCandidate is a scored stock that may be bought or sold.
// CurrentPrice is optional; the generator falls back to the holding's price.
type StockCandidate struct {
	Ticker         string   `json:"ticker" msgpack:"ticker" validate:"required"`
	SectorID       int      `json:"sector_id" msgpack:"sector_id" validate:"gt=0"`
	Name           string   `json:"name" msgpack:"name"`
	CurrentPrice   *float64 `json:"current_price,omitempty" msgpack:"current_price,omitempty"`
	CompositeScore float64  `json:"composite_score" msgpack:"composite_score" validate:"gte=0,lte=100"`
	Category       Category `json:"category" msgpack:"category" validate:"oneof=Leader Laggard Neutral"`
}

// ConstraintSet holds the risk limits applied to a generation run.
// MaxSectorCap is advisory: it is reported as a violation but never enforced by the generator.
type ConstraintSet struct {
	MaxStockWeight  float64 `json:"max_stock_weight" msgpack:"max_stock_weight" validate:"gt=0,lte=100"`
	MaxSectorCap    float64 `json:"max_sector_cap" msgpack:"max_sector_cap" validate:"gt=0,lte=100"`
	MaxTradesPerRun int     `json:"max_trades_per_run" msgpack:"max_trades_per_run" validate:"gte=0"`
}

// DefaultConstraintSet returns the constraint defaults
func DefaultConstraintSet() ConstraintSet {
	return ConstraintSet{
		MaxStockWeight:  DefaultMaxStockWeight,
		MaxSectorCap:    DefaultMaxSectorCap,
		MaxTradesPerRun: DefaultMaxTradesPerRun,
	}
}

// ConstraintSetFromMap builds a ConstraintSet from a key/value mapping.
// Unknown keys are ignored and missing keys keep their defaults.
func ConstraintSetFromMap(values map[string]float64) ConstraintSet {
	cs := DefaultConstraintSet()
	if v, ok := values[ConstraintMaxStockWeight]; ok {
		cs.MaxStockWeight = v
	}
	if v, ok := values[ConstraintMaxSectorCap]; ok {
		cs.MaxSectorCap = v
	}
	if v, ok := values[ConstraintMaxTradesPerRun]; ok {
		cs.MaxTradesPerRun = int(v)
	}
	return cs
}

// ToMap returns the constraint set keyed by constraint name
func (c ConstraintSet) ToMap() map[string]float64 {
	return map[string]float64{
		ConstraintMaxStockWeight:  c.MaxStockWeight,
		ConstraintMaxSectorCap:    c.MaxSectorCap,
		ConstraintMaxTradesPerRun: float64(c.MaxTradesPerRun),
	}
}

// Suggestion is a single suggested trade with its simulated post-trade state
type Suggestion struct {
	Action            TradeAction `json:"action" msgpack:"action"`
	Ticker            string      `json:"ticker" msgpack:"ticker"`
	SectorID          int         `json:"sector_id" msgpack:"sector_id"`
	Quantity          int         `json:"quantity" msgpack:"quantity"`
	EstValueCr        float64     `json:"est_value_cr" msgpack:"est_value_cr"`
	Rationale         string      `json:"rationale" msgpack:"rationale"`
	PostTradeWeight   float64     `json:"post_trade_weight" msgpack:"post_trade_weight"`
	PostTradeDrift    float64     `json:"post_trade_drift" msgpack:"post_trade_drift"`
	BindingConstraint string      `json:"binding_constraint,omitempty" msgpack:"binding_constraint,omitempty"`
}

// ValueCr converts a quantity at a per-share price into crore
func ValueCr(quantity int, price float64) float64 {
	return float64(quantity) * price / CroreUnit
}

// RecomputeWeights returns a copy of holdings with CurrentValue and PortfolioWeight
// derived from quantity and current price, along with the total value in crore.
func RecomputeWeights(holdings []Holding) ([]Holding, float64) {
	result := make([]Holding, len(holdings))
	total := 0.0
	for i, h := range holdings {
		h.CurrentValue = ValueCr(h.Quantity, h.CurrentPrice)
		total += h.CurrentValue
		result[i] = h
	}
	for i := range result {
		if total > 0 {
			result[i].PortfolioWeight = result[i].CurrentValue / total * 100
		} else {
			result[i].PortfolioWeight = 0
		}
	}
	return result, total
}

// TotalValue sums the current value of all holdings
func TotalValue(holdings []Holding) float64 {
	total := 0.0
	for _, h := range holdings {
		total += h.CurrentValue
	}
	return total
}

// Round rounds a float64 to n decimal places
func Round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}

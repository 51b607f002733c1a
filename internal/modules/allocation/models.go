// Package allocation provides sector target storage, drift assessment and
// constraint violation reporting.
package allocation

import "time"

// SectorTarget is the target weight (%) of one sector
type SectorTarget struct {
	UpdatedAt    time.Time `json:"updated_at"`
	SectorID     int       `json:"sector_id" validate:"gt=0"`
	TargetWeight float64   `json:"target_weight" validate:"gte=0,lte=100"`
}

// DriftSummary aggregates absolute sector drift
type DriftSummary struct {
	TotalAbsDrift float64 `json:"total_abs_drift"`
	MaxAbsDrift   float64 `json:"max_abs_drift"`
	MeanAbsDrift  float64 `json:"mean_abs_drift"`
	Sectors       int     `json:"sectors"`
}

// ViolationType identifies which constraint a violation refers to
type ViolationType string

const (
	ViolationSectorCap      ViolationType = "SECTOR_CAP"
	ViolationMaxStockWeight ViolationType = "MAX_STOCK_WEIGHT"
)

// Violation is a constraint breach in the current portfolio
type Violation struct {
	Type           ViolationType `json:"type"`
	Message        string        `json:"message"`
	TickerOrSector string        `json:"ticker_or_sector"`
}

package settings

import (
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
)

// Additional constraint keys beyond the generator's constraint set
const (
	ConstraintMinLiquidityRatio   = "min_liquidity_ratio"
	ConstraintDriftAlertThreshold = "drift_alert_threshold"
)

// Definition describes a recognised constraint: its default and valid range
type Definition struct {
	Description string
	Default     float64
	Min         float64
	Max         float64
	Integer     bool
}

// ConstraintDefinitions holds every constraint the system understands.
// Values outside [Min, Max] are rejected on update.
var ConstraintDefinitions = map[string]Definition{
	domain.ConstraintMaxStockWeight: {
		Description: "Maximum weight of a single stock (% of portfolio)",
		Default:     domain.DefaultMaxStockWeight,
		Min:         0.1,
		Max:         100,
	},
	domain.ConstraintMaxSectorCap: {
		Description: "Maximum weight of a single sector (% of portfolio, advisory)",
		Default:     domain.DefaultMaxSectorCap,
		Min:         1,
		Max:         100,
	},
	domain.ConstraintMaxTradesPerRun: {
		Description: "Maximum number of suggestions per rebalance run",
		Default:     domain.DefaultMaxTradesPerRun,
		Min:         0,
		Max:         100,
		Integer:     true,
	},
	ConstraintMinLiquidityRatio: {
		Description: "Minimum daily volume as a multiple of the held quantity",
		Default:     10,
		Min:         0,
		Max:         1000,
	},
	ConstraintDriftAlertThreshold: {
		Description: "Absolute sector drift (percentage points) flagged in the portfolio summary",
		Default:     2,
		Min:         0,
		Max:         100,
	},
}

// Constraint is one stored or defaulted constraint value
type Constraint struct {
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Key         string     `json:"key"`
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	Default     float64    `json:"default"`
	IsDefault   bool       `json:"is_default"`
}

package rebalancing

import (
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
)

// HoldingsProvider returns the current holdings valued at latest prices
type HoldingsProvider interface {
	GetValuedHoldings() ([]domain.Holding, error)
}

// ExposureProvider derives sector exposure from valued holdings
type ExposureProvider interface {
	GetSectorExposure(holdings []domain.Holding) ([]domain.SectorExposure, error)
}

// CandidateProvider returns every scored stock as a generator candidate
type CandidateProvider interface {
	GetCandidates() ([]domain.StockCandidate, error)
}

// ConstraintsProvider returns the active constraint set
type ConstraintsProvider interface {
	GetConstraintSet() (domain.ConstraintSet, error)
}

// RunStore persists runs and suggestion status changes
type RunStore interface {
	SaveRun(run *Run, snapshot *Snapshot) error
	GetRun(runID string) (*Run, error)
	GetLatestRun() (*Run, error)
	SetSuggestionStatus(runID string, suggestionID int64, status domain.SuggestionStatus, at time.Time) (*RunSuggestion, bool, error)
}

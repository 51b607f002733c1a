package rebalancing

import (
	"errors"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
)

// Run lifecycle errors
var (
	ErrRunNotFound             = errors.New("rebalance run not found")
	ErrSuggestionNotFound      = errors.New("suggestion not found")
	ErrInvalidStatusTransition = errors.New("invalid suggestion status transition")
	ErrNoRuns                  = errors.New("no rebalance runs recorded")
)

// Triggers recorded on a run
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCLI       = "cli"
)

// Snapshot is the full generator input captured for a run
type Snapshot struct {
	Holdings    []domain.Holding        `msgpack:"holdings"`
	Exposure    []domain.SectorExposure `msgpack:"exposure"`
	Stocks      []domain.StockCandidate `msgpack:"stocks"`
	Constraints domain.ConstraintSet    `msgpack:"constraints"`
}

// Run is one persisted generation run with its suggestions
type Run struct {
	CreatedAt     time.Time            `json:"created_at"`
	Constraints   domain.ConstraintSet `json:"constraints"`
	ID            string               `json:"run_id"`
	Trigger       string               `json:"trigger"`
	Suggestions   []RunSuggestion      `json:"suggestions"`
	DriftBefore   float64              `json:"drift_before"`
	DriftAfterEst float64              `json:"drift_after_est"`
	TotalValueCr  float64              `json:"total_value_cr"`
	DryRun        bool                 `json:"dry_run"`
}

// RunSuggestion is a suggestion as stored in a run, with its lifecycle status
type RunSuggestion struct {
	domain.Suggestion
	ApprovedAt *time.Time              `json:"approved_at,omitempty"`
	LockedAt   *time.Time              `json:"locked_at,omitempty"`
	RunID      string                  `json:"run_id"`
	Status     domain.SuggestionStatus `json:"status"`
	ID         int64                   `json:"id"`
	Ordinal    int                     `json:"ordinal"`
}

// Counts returns the number of BUY and SELL suggestions in the run
func (r *Run) Counts() (buys, sells int) {
	for _, s := range r.Suggestions {
		if s.Action == domain.ActionBuy {
			buys++
		} else {
			sells++
		}
	}
	return buys, sells
}

// checkTransition validates a status change. It reports whether the change is a
// no-op (re-approving an approved suggestion).
//
//	pending  -> approved | locked
//	approved -> approved (no-op) | locked
//	locked   -> terminal
func checkTransition(from, to domain.SuggestionStatus) (noop bool, err error) {
	switch from {
	case domain.StatusPending:
		if to == domain.StatusApproved || to == domain.StatusLocked {
			return false, nil
		}
	case domain.StatusApproved:
		if to == domain.StatusApproved {
			return true, nil
		}
		if to == domain.StatusLocked {
			return false, nil
		}
	}
	return false, ErrInvalidStatusTransition
}

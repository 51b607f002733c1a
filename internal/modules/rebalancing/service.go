package rebalancing

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/metrics"
	"github.com/aristath/sectorpilot/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// Service orchestrates rebalance runs: it snapshots the portfolio, runs the
// generator, persists the result and drives the suggestion lifecycle.
type Service struct {
	mu sync.Mutex

	generator   *Generator
	holdings    HoldingsProvider
	exposure    ExposureProvider
	candidates  CandidateProvider
	constraints ConstraintsProvider
	runs        RunStore
	events      *events.Manager
	metrics     *metrics.Metrics

	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new rebalancing service.
// eventManager and m may be nil.
func NewService(
	generator *Generator,
	holdings HoldingsProvider,
	exposure ExposureProvider,
	candidates CandidateProvider,
	constraints ConstraintsProvider,
	runs RunStore,
	eventManager *events.Manager,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		generator:   generator,
		holdings:    holdings,
		exposure:    exposure,
		candidates:  candidates,
		constraints: constraints,
		runs:        runs,
		events:      eventManager,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("service", "rebalancing").Logger(),
	}
}

// Snapshot reads every generator input from the providers
func (s *Service) Snapshot() (*Snapshot, error) {
	holdings, err := s.holdings.GetValuedHoldings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	exposure, err := s.exposure.GetSectorExposure(holdings)
	if err != nil {
		return nil, fmt.Errorf("failed to assess sector exposure: %w", err)
	}

	candidates, err := s.candidates.GetCandidates()
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	constraints, err := s.constraints.GetConstraintSet()
	if err != nil {
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}

	return &Snapshot{
		Holdings:    holdings,
		Exposure:    exposure,
		Stocks:      candidates,
		Constraints: constraints,
	}, nil
}

// Generate runs the suggestion generator against the current portfolio.
// Unless dryRun is set the run is persisted and a SuggestionsGenerated event
// is emitted. Runs never interleave.
func (s *Service) Generate(trigger string, dryRun bool) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	run, err := s.generate(trigger, dryRun)
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ObserveRun(trigger, outcome, started)
	}
	if err != nil {
		if s.events != nil {
			s.events.EmitError("rebalancing", err, map[string]interface{}{"trigger": trigger})
		}
		return nil, err
	}
	return run, nil
}

func (s *Service) generate(trigger string, dryRun bool) (*Run, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	suggestions, err := s.generator.Generate(snapshot.Holdings, snapshot.Exposure, snapshot.Stocks, snapshot.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	summary := allocation.SummarizeDrift(snapshot.Exposure)
	run := &Run{
		CreatedAt:     s.now(),
		Constraints:   snapshot.Constraints,
		Trigger:       trigger,
		Suggestions:   make([]RunSuggestion, len(suggestions)),
		DriftBefore:   domain.Round(summary.TotalAbsDrift, 2),
		DriftAfterEst: domain.Round(allocation.EstimateDriftAfter(snapshot.Exposure, suggestions), 2),
		TotalValueCr:  domain.Round(domain.TotalValue(snapshot.Holdings), 2),
		DryRun:        dryRun,
	}
	for i, sg := range suggestions {
		run.Suggestions[i] = RunSuggestion{
			Suggestion: sg,
			Ordinal:    i + 1,
			Status:     domain.StatusPending,
		}
	}

	if dryRun {
		s.log.Info().
			Str("trigger", trigger).
			Int("suggestions", len(suggestions)).
			Msg("Dry run, suggestions not persisted")
		return run, nil
	}

	if err := s.runs.SaveRun(run, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	if s.metrics != nil {
		buys, sells := run.Counts()
		s.metrics.SuggestionsTotal.WithLabelValues(string(domain.ActionBuy)).Add(float64(buys))
		s.metrics.SuggestionsTotal.WithLabelValues(string(domain.ActionSell)).Add(float64(sells))
		s.metrics.DriftBefore.Set(run.DriftBefore)
		s.metrics.DriftAfterEstimate.Set(run.DriftAfterEst)
	}

	if s.events != nil {
		s.events.EmitTyped("rebalancing", &events.SuggestionsGeneratedData{
			RunID:         run.ID,
			Trigger:       trigger,
			Count:         len(run.Suggestions),
			DriftBefore:   run.DriftBefore,
			DriftAfterEst: run.DriftAfterEst,
		})
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("trigger", trigger).
		Int("suggestions", len(run.Suggestions)).
		Float64("drift_before", run.DriftBefore).
		Float64("drift_after_est", run.DriftAfterEst).
		Msg("Rebalance run generated")

	return run, nil
}

// GetLatestRun returns the most recent persisted run
func (s *Service) GetLatestRun() (*Run, error) {
	return s.runs.GetLatestRun()
}

// GetRun returns a persisted run by id
func (s *Service) GetRun(runID string) (*Run, error) {
	return s.runs.GetRun(runID)
}

// Approve marks a pending suggestion approved. Approving twice is a no-op.
func (s *Service) Approve(runID string, suggestionID int64) (*RunSuggestion, error) {
	return s.setStatus(runID, suggestionID, domain.StatusApproved)
}

// Lock marks a pending or approved suggestion locked
func (s *Service) Lock(runID string, suggestionID int64) (*RunSuggestion, error) {
	return s.setStatus(runID, suggestionID, domain.StatusLocked)
}

func (s *Service) setStatus(runID string, suggestionID int64, status domain.SuggestionStatus) (*RunSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	suggestion, changed, err := s.runs.SetSuggestionStatus(runID, suggestionID, status, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return suggestion, nil
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	}
	if s.events != nil {
		s.events.EmitTyped("rebalancing", &events.SuggestionStatusData{
			RunID:        runID,
			SuggestionID: suggestionID,
			Action:       string(suggestion.Action),
			Ticker:       suggestion.Ticker,
			Status:       string(status),
		})
	}

	return suggestion, nil
}

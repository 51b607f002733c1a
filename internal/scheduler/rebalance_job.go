package scheduler

import (
	"fmt"

	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/rs/zerolog"
)

// PerformanceRefresher recomputes relative performance from stored closes
type PerformanceRefresher interface {
	RefreshPerformance() (*universe.RefreshResult, error)
}

// RunGenerator generates and persists a rebalance run
type RunGenerator interface {
	Generate(trigger string, dryRun bool) (*rebalancing.Run, error)
}

// RebalanceJob refreshes relative performance and then generates a persisted
// rebalance run
type RebalanceJob struct {
	refresher PerformanceRefresher
	generator RunGenerator
	log       zerolog.Logger
}

// NewRebalanceJob creates a new RebalanceJob
func NewRebalanceJob(refresher PerformanceRefresher, generator RunGenerator, log zerolog.Logger) *RebalanceJob {
	return &RebalanceJob{
		refresher: refresher,
		generator: generator,
		log:       log.With().Str("job", "rebalance").Logger(),
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Run executes the rebalance job
func (j *RebalanceJob) Run() error {
	refreshed, err := j.refresher.RefreshPerformance()
	if err != nil {
		return fmt.Errorf("failed to refresh performance: %w", err)
	}

	run, err := j.generator.Generate(rebalancing.TriggerScheduled, false)
	if err != nil {
		return fmt.Errorf("failed to generate rebalance run: %w", err)
	}

	j.log.Info().
		Int("sectors_refreshed", refreshed.Sectors).
		Int("stocks_refreshed", refreshed.Stocks).
		Str("run_id", run.ID).
		Int("suggestions", len(run.Suggestions)).
		Float64("drift_before", run.DriftBefore).
		Float64("drift_after_est", run.DriftAfterEst).
		Msg("Scheduled rebalance completed")

	return nil
}

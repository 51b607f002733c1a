package di

import (
	"fmt"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/scheduler"
	"github.com/rs/zerolog"
)

// Maintenance schedules (five-field cron)
const (
	checkCoreDatabasesSchedule = "15 3 * * *"
	walCheckpointSchedule      = "0 * * * *"
)

// RegisterJobs creates the background jobs and adds them to the scheduler.
// The rebalance job is only scheduled when a schedule is configured; it is
// always returned for manual runs.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	rebalance := scheduler.NewRebalanceJob(container.UniverseService, container.RebalancingService, log)

	checkCore := scheduler.NewCheckCoreDatabasesJob(container.UniverseDB, container.PortfolioDB, container.LedgerDB)
	checkCore.SetLogger(log.With().Str("job", "check_core_databases").Logger())

	walCheckpoint := scheduler.NewWALCheckpointJob(container.UniverseDB, container.PortfolioDB, container.LedgerDB)
	walCheckpoint.SetLogger(log.With().Str("job", "wal_checkpoint").Logger())

	instances := &JobInstances{
		Rebalance:          rebalance,
		CheckCoreDatabases: checkCore,
		WALCheckpoint:      walCheckpoint,
	}

	if sched == nil {
		return instances, nil
	}

	if cfg.RebalanceSchedule != "" {
		if err := sched.AddJob(cfg.RebalanceSchedule, rebalance); err != nil {
			return nil, fmt.Errorf("failed to schedule rebalance job: %w", err)
		}
	} else {
		log.Info().Msg("REBALANCE_SCHEDULE not set, scheduled rebalancing disabled")
	}

	if err := sched.AddJob(checkCoreDatabasesSchedule, checkCore); err != nil {
		return nil, fmt.Errorf("failed to schedule database check: %w", err)
	}
	if err := sched.AddJob(walCheckpointSchedule, walCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to schedule WAL checkpoint: %w", err)
	}

	return instances, nil
}

package di

import (
	"fmt"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/scheduler"
	"github.com/aristath/sectorpilot/internal/seed"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Apply the seed file when the universe is empty
// 5. Register jobs
// sched may be nil (CLI usage); jobs are then created but not scheduled.
func Wire(cfg *config.Config, log zerolog.Logger, sched *scheduler.Scheduler) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := seedIfEmpty(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to seed universe: %w", err)
	}

	jobs, err := RegisterJobs(container, cfg, sched, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}

func seedIfEmpty(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if cfg.SeedFile == "" {
		return nil
	}

	needed, err := container.Seeder.NeedsSeed()
	if err != nil {
		return err
	}
	if !needed {
		log.Debug().Str("seed_file", cfg.SeedFile).Msg("Universe already populated, skipping seed")
		return nil
	}

	f, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	_, err = container.Seeder.Apply(f)
	return err
}

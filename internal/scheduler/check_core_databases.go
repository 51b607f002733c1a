package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// integrityCheckTimeout bounds a single database's integrity check
const integrityCheckTimeout = 2 * time.Minute

// CheckCoreDatabasesJob verifies integrity of the SQLite databases
type CheckCoreDatabasesJob struct {
	log         zerolog.Logger
	universeDB  *database.DB
	portfolioDB *database.DB
	ledgerDB    *database.DB
}

// NewCheckCoreDatabasesJob creates a new CheckCoreDatabasesJob
func NewCheckCoreDatabasesJob(
	universeDB *database.DB,
	portfolioDB *database.DB,
	ledgerDB *database.DB,
) *CheckCoreDatabasesJob {
	return &CheckCoreDatabasesJob{
		log:         zerolog.Nop(),
		universeDB:  universeDB,
		portfolioDB: portfolioDB,
		ledgerDB:    ledgerDB,
	}
}

// SetLogger sets the logger for the job
func (j *CheckCoreDatabasesJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CheckCoreDatabasesJob) Name() string {
	return "check_core_databases"
}

// Run executes the check core databases job
func (j *CheckCoreDatabasesJob) Run() error {
	databases := []struct {
		name string
		db   *database.DB
	}{
		{database.NameUniverse, j.universeDB},
		{database.NamePortfolio, j.portfolioDB},
		{database.NameLedger, j.ledgerDB},
	}

	for _, entry := range databases {
		if entry.db == nil {
			j.log.Warn().Str("database", entry.name).Msg("Database not initialized, skipping")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), integrityCheckTimeout)
		err := entry.db.HealthCheck(ctx)
		cancel()
		if err != nil {
			// Corruption cannot be repaired automatically
			j.log.Error().
				Err(err).
				Str("database", entry.name).
				Msg("Core database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", entry.name, err)
		}

		j.log.Debug().Str("database", entry.name).Msg("Database integrity OK")
	}

	j.log.Info().Msg("All core databases integrity check passed")
	return nil
}

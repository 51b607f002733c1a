package scheduler

import (
	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
)

// walFrameThreshold is the WAL size, in frames, above which a TRUNCATE
// checkpoint is forced
const walFrameThreshold = 1000

// WALCheckpointJob inspects WAL growth and truncates oversized logs
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewWALCheckpointJob creates a new WALCheckpointJob. Nil databases are ignored.
func NewWALCheckpointJob(databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		log:       zerolog.Nop(),
		databases: databases,
	}
}

// SetLogger sets the logger for the job
func (j *WALCheckpointJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	checked, truncated := 0, 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to check WAL checkpoint")
			continue
		}
		checked++

		if frames <= walFrameThreshold {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
			continue
		}

		j.log.Warn().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL truncate failed")
			continue
		}
		truncated++
	}

	j.log.Info().
		Int("checked", checked).
		Int("truncated", truncated).
		Msg("WAL checkpoint check completed")

	return nil
}

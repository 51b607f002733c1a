package scheduler

import (
	"testing"

	testingutil "github.com/aristath/sectorpilot/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckCoreDatabasesJob_Name(t *testing.T) {
	job := &CheckCoreDatabasesJob{
		log: zerolog.Nop(),
	}
	assert.Equal(t, "check_core_databases", job.Name())
}

func TestCheckCoreDatabasesJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckCoreDatabasesJob(nil, nil, nil)
	job.SetLogger(log)

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckCoreDatabasesJob_Run_HealthyDatabases(t *testing.T) {
	universeDB, cleanupUniverse := testingutil.NewTestDB(t, "universe")
	defer cleanupUniverse()
	portfolioDB, cleanupPortfolio := testingutil.NewTestDB(t, "portfolio")
	defer cleanupPortfolio()
	ledgerDB, cleanupLedger := testingutil.NewTestDB(t, "ledger")
	defer cleanupLedger()

	job := NewCheckCoreDatabasesJob(universeDB, portfolioDB, ledgerDB)
	assert.NoError(t, job.Run())
}

func TestCheckCoreDatabasesJob_Run_ClosedDatabase(t *testing.T) {
	ledgerDB, cleanup := testingutil.NewTestDB(t, "ledger")
	cleanup()

	job := NewCheckCoreDatabasesJob(nil, nil, ledgerDB)
	assert.Error(t, job.Run())
}

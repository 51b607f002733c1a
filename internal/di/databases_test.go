package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DataDir: tmpDir}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	assert.NotNil(t, container.UniverseDB)
	assert.NotNil(t, container.PortfolioDB)
	assert.NotNil(t, container.LedgerDB)

	assert.FileExists(t, filepath.Join(tmpDir, "universe.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "portfolio.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "ledger.db"))

	assert.Equal(t, database.ProfileLedger, container.LedgerDB.Profile())
	assert.Equal(t, database.ProfileStandard, container.UniverseDB.Profile())
}

func TestInitializeDatabases_SchemaMigration(t *testing.T) {
	container, err := InitializeDatabases(&config.Config{DataDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	for _, q := range []struct {
		db    *database.DB
		table string
	}{
		{container.UniverseDB, "sectors"},
		{container.UniverseDB, "stock_prices"},
		{container.PortfolioDB, "holdings"},
		{container.PortfolioDB, "constraints"},
		{container.LedgerDB, "rebalance_runs"},
		{container.LedgerDB, "audit_log"},
	} {
		var count int
		err := q.db.Conn().QueryRow("SELECT COUNT(*) FROM " + q.table).Scan(&count)
		assert.NoError(t, err, q.table)
	}
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	// A regular file cannot hold a data directory, whatever the user's permissions
	blocker := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg := &config.Config{DataDir: filepath.Join(blocker, "sub")}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestContainer_CloseIgnoresMissingDatabases(t *testing.T) {
	container := &Container{}
	assert.NotPanics(t, container.Close)
}

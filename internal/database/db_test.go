package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "nested", name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndDefaultsProfile(t *testing.T) {
	db := openTestDB(t, NameUniverse, "")

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, NameUniverse, db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
	assert.FileExists(t, db.Path())
}

func TestNew_UnknownProfile(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Profile: "turbo", Name: "x"})
	assert.ErrorContains(t, err, "unknown database profile")
}

func TestConnectionString(t *testing.T) {
	s := connectionString("/tmp/ledger.db", profiles[ProfileLedger])
	assert.Contains(t, s, "/tmp/ledger.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "&_pragma=synchronous(FULL)")
	assert.Contains(t, s, "&_pragma=foreign_keys(1)")
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t, NameLedger, ProfileLedger)

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, db.Migrate())
	version, err = db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	var n int
	require.NoError(t, db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'rebalance_runs'",
	).Scan(&n))
	assert.Equal(t, 1, n)

	// Second run is a no-op
	require.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := openTestDB(t, "scratch", ProfileStandard)
	require.NoError(t, db.Migrate())

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t, "scratch", ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
		return n
	}

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (v) VALUES (1)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (v) VALUES (2)")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (v) VALUES (3)")
		panic("bad")
	})
	assert.ErrorContains(t, err, "panic in transaction")
	assert.Equal(t, 1, count())

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestHealthAndMaintenance(t *testing.T) {
	db := openTestDB(t, NamePortfolio, ProfileStandard)
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	assert.NoError(t, db.QuickCheck(ctx))
	assert.NoError(t, db.HealthCheck(ctx))

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))
	assert.ErrorContains(t, db.WALCheckpoint("DROP TABLE"), "invalid WAL checkpoint mode")

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
	assert.Greater(t, stats.SizeBytes, int64(0))
}

func TestHealthCheck_ClosedDatabase(t *testing.T) {
	db := openTestDB(t, NameUniverse, ProfileStandard)
	require.NoError(t, db.Close())

	assert.Error(t, db.HealthCheck(context.Background()))
	_, err := db.GetStats()
	assert.Error(t, err)
}

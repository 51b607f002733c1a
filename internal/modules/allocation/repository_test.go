package allocation

import (
	"testing"

	testingutil "github.com/aristath/sectorpilot/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_UpsertAndGet(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	targets, err := repo.GetSectorTargets()
	require.NoError(t, err)
	assert.Empty(t, targets)

	err = repo.UpsertMany([]SectorTarget{
		{SectorID: 3, TargetWeight: 20},
		{SectorID: 1, TargetWeight: 50},
	})
	require.NoError(t, err)

	targets, err = repo.GetSectorTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, 1, targets[0].SectorID)
	assert.Equal(t, 50.0, targets[0].TargetWeight)
	assert.False(t, targets[0].UpdatedAt.IsZero())
	assert.Equal(t, 3, targets[1].SectorID)

	// Upsert overwrites
	require.NoError(t, repo.Upsert(SectorTarget{SectorID: 3, TargetWeight: 35}))
	targets, err = repo.GetSectorTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, 35.0, targets[1].TargetWeight)
}

func TestRepository_UpsertManyIsAtomic(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Upsert(SectorTarget{SectorID: 1, TargetWeight: 10}))

	// The second row violates the weight CHECK constraint, so nothing is written
	err := repo.UpsertMany([]SectorTarget{
		{SectorID: 1, TargetWeight: 40},
		{SectorID: 2, TargetWeight: 140},
	})
	require.Error(t, err)

	targets, err := repo.GetSectorTargets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, 10.0, targets[0].TargetWeight)
}

func TestRepository_Delete(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Upsert(SectorTarget{SectorID: 4, TargetWeight: 10}))
	require.NoError(t, repo.Delete(4))
	require.NoError(t, repo.Delete(99))

	targets, err := repo.GetSectorTargets()
	require.NoError(t, err)
	assert.Empty(t, targets)
}

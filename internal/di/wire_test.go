package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/sectorpilot/internal/config"
	"github.com/aristath/sectorpilot/internal/events"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wireSeed = `
source: wire-test
sectors:
  - id: 1
    name: IT
    nifty_code: "^CNXIT"
    gva_weight: 14.5
  - id: 2
    name: FMCG
    nifty_code: "^CNXFMCG"
    gva_weight: 8.1
stocks:
  - ticker: TCS.NS
    name: Tata Consultancy Services
    sector_id: 1
    prices:
      - date: "2025-01-31"
        close: 4000
        volume: 2000000
  - ticker: ITC.NS
    name: ITC
    sector_id: 2
    prices:
      - date: "2025-01-31"
        close: 450
        volume: 15000000
holdings:
  - ticker: TCS.NS
    quantity: 10000
    avg_cost: 3500
  - ticker: ITC.NS
    quantity: 10000
    avg_cost: 400
sector_targets:
  1: 50
  2: 50
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(wireSeed), 0644))
	return path
}

func TestWire(t *testing.T) {
	cfg := &config.Config{
		DataDir:           t.TempDir(),
		SeedFile:          writeSeed(t),
		RebalanceSchedule: "30 9 * * MON-FRI",
	}
	sched := scheduler.New(zerolog.Nop())

	container, jobs, err := Wire(cfg, zerolog.Nop(), sched)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.UniverseService)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.RebalancingService)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, jobs.Rebalance)
	assert.NotNil(t, jobs.CheckCoreDatabases)
	assert.NotNil(t, jobs.WALCheckpoint)

	count, err := container.StockRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Seeding is audited
	assert.Equal(t, 1, countAudited(t, container, events.UniverseSeeded))

	constraints, err := container.SettingsService.GetConstraints()
	require.NoError(t, err)
	assert.NotEmpty(t, constraints)
}

func TestWire_GeneratesRunEndToEnd(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), SeedFile: writeSeed(t)}

	container, _, err := Wire(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer container.Close()

	run, err := container.RebalancingService.Generate(rebalancing.TriggerCLI, false)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	latest, err := container.RebalancingService.GetLatestRun()
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestWire_SkipsSeedWhenPopulated(t *testing.T) {
	dataDir := t.TempDir()
	seedFile := writeSeed(t)

	first, _, err := Wire(&config.Config{DataDir: dataDir, SeedFile: seedFile}, zerolog.Nop(), nil)
	require.NoError(t, err)
	first.Close()

	second, _, err := Wire(&config.Config{DataDir: dataDir, SeedFile: seedFile}, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 1, countAudited(t, second, events.UniverseSeeded))
}

func countAudited(t *testing.T, c *Container, eventType events.EventType) int {
	t.Helper()
	entries, err := c.AuditRepo.List(1, 100)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.ActionType == string(eventType) {
			n++
		}
	}
	return n
}

func TestWire_MissingSeedFile(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), SeedFile: "/nonexistent/seed.yaml"}

	container, _, err := Wire(cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
	assert.Nil(t, container)
}

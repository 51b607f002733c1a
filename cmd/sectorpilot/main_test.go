package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliSeed = `
source: cli-test
sectors:
  - id: 1
    name: IT
    nifty_code: "^CNXIT"
    gva_weight: 14.5
    performance:
      - date: "2025-01-31"
        rel_perf_3m: 4.2
        trend: Improving
  - id: 2
    name: FMCG
    nifty_code: "^CNXFMCG"
    gva_weight: 8.1
    performance:
      - date: "2025-01-31"
        rel_perf_3m: -3
        trend: Deteriorating
stocks:
  - ticker: TCS.NS
    name: Tata Consultancy Services
    sector_id: 1
    roe: 45
    prices:
      - date: "2025-01-31"
        close: 4000
        volume: 2000000
  - ticker: ITC.NS
    name: ITC
    sector_id: 2
    roe: 25
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
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seededDataDir(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	seedFile := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte(cliSeed), 0644))

	out, err := execute(t, "seed", "--file", seedFile, "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 2 sectors, 2 stocks, 2 prices and 2 holdings from cli-test")
	return dataDir
}

func TestSeedCommand_RefusesPopulatedUniverse(t *testing.T) {
	dataDir := seededDataDir(t)
	seedFile := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte(cliSeed), 0644))

	_, err := execute(t, "seed", "--file", seedFile, "--data-dir", dataDir, "--log-level", "error")
	assert.ErrorContains(t, err, "already populated")

	_, err = execute(t, "seed", "--file", seedFile, "--data-dir", dataDir, "--log-level", "error", "--force")
	assert.NoError(t, err)
}

func TestSeedCommand_RequiresFile(t *testing.T) {
	_, err := execute(t, "seed", "--data-dir", t.TempDir())
	assert.Error(t, err)
}

func TestScoreCommand(t *testing.T) {
	dataDir := seededDataDir(t)

	out, err := execute(t, "score", "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "SECTOR")
	assert.Regexp(t, `(?s)IT.*FMCG`, out)

	out, err = execute(t, "score", "--sector", "1", "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "TCS.NS")
	assert.NotContains(t, out, "ITC.NS")

	_, err = execute(t, "score", "--period", "2w", "--data-dir", dataDir, "--log-level", "error")
	assert.Error(t, err)
}

func TestGenerateCommand(t *testing.T) {
	dataDir := seededDataDir(t)

	out, err := execute(t, "generate", "--dry-run", "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Run dry run:")

	out, err = execute(t, "generate", "--data-dir", dataDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Run ")
	assert.NotContains(t, out, "dry run")
}

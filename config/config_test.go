package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-quality-backend/internal/water"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)

	assert.Equal(t, UpstreamMirror, cfg.Upstream.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Upstream.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Upstream.RetryBaseDelay)
	assert.Equal(t, time.UTC, cfg.Upstream.Location)

	assert.Equal(t, 720, cfg.Forecast.HistoryHours)
	assert.Equal(t, 0.166, cfg.Treatment.DefaultFlowLPerMin)
	assert.Equal(t, 0.95, cfg.Treatment.DefaultRemovalEfficiency)
	assert.Equal(t, 10, cfg.Treatment.ProgressSteps)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 16, cfg.WorkerPool.QueueSize)

	assert.Equal(t, water.DefaultAreaProfiles(), cfg.Areas)
	assert.Equal(t, water.DefaultChores(), cfg.Chores)
	assert.Equal(t, water.DefaultDevices(), cfg.Devices)
}

func TestLoad_Overrides(t *testing.T) {
	body := `
database:
  driver: SQLite
  dsn: file::memory:
upstream:
  enabled: true
  mode: Direct
  base_url: http://upstream.local/
  timezone: Asia/Kolkata
  retry_base_delay_ms: 50
areas:
  - name: Lakeside
    tds_min: 100
    tds_max: 200
    hardness_min: 10
    hardness_max: 50
chores:
  - name: Aquarium
    use: drinking
    tds: {min: 100, max: 200}
    hardness: {min: 50, max: 100}
    ph: {min: 6.5, max: 7.5}
    ideal_hardness: 70
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, UpstreamDirect, cfg.Upstream.Mode)
	assert.Equal(t, "http://upstream.local", cfg.Upstream.BaseURL)
	assert.Equal(t, "Asia/Kolkata", cfg.Upstream.Location.String())
	assert.Equal(t, 50*time.Millisecond, cfg.Upstream.RetryBaseDelay)

	require.Len(t, cfg.Areas, 1)
	assert.Equal(t, 50.0, cfg.Areas[0].HardnessMax)
	require.Len(t, cfg.Chores, 1)
	assert.Equal(t, water.UseDrinking, cfg.Chores[0].Use)
	assert.Equal(t, water.Range{Min: 6.5, Max: 7.5}, cfg.Chores[0].PH)
	assert.Equal(t, 70.0, cfg.Chores[0].IdealHardness)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "from-env")
	t.Setenv("DATABASE_DSN", "host=db")

	cfg, err := Load(writeConfig(t, "ingest:\n  token: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Ingest.Token)
	assert.Equal(t, "host=db", cfg.Database.DSN)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	cfg, err := Load(writeConfig(t, "upstream:\n  timezone: Mars/Olympus\n"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Upstream.Location)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Len(t, cfg.Areas, 2)
	assert.Len(t, cfg.Devices, 2)
	assert.Equal(t, water.DefaultChores(), cfg.Chores)
	for _, d := range cfg.Devices {
		assert.NoError(t, d.Validate())
	}
}

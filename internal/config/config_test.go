package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.EnableCORS)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, DefaultDatasetCSV, cfg.Data.CSVPath)
	assert.True(t, cfg.Data.FetchIfMissing)

	assert.Equal(t, 22.0, cfg.Analytics.CriticalPct)
	assert.Equal(t, 15.0, cfg.Analytics.WatchPct)
	assert.Equal(t, 20.2, cfg.Analytics.IndustryAvgPct)
	assert.Equal(t, 30, cfg.Analytics.LatencyMaxDays)
	assert.Equal(t, DefaultTopN, cfg.Analytics.DefaultTopN)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)

	// Defaults must pass their own validation.
	require.NoError(t, cfg.validate())
}

func TestAnalyticsConfig_Thresholds(t *testing.T) {
	cfg := Default()
	cfg.Analytics.CriticalPct = 40
	cfg.Analytics.WatchPct = 25
	cfg.Analytics.FastDays = 5

	th := cfg.Analytics.Thresholds()

	assert.Equal(t, 40.0, th.CriticalPct)
	assert.Equal(t, 25.0, th.WatchPct)
	assert.Equal(t, 20.2, th.IndustryAvgPct)
	assert.Equal(t, 0, th.WindowMinDays)
	assert.Equal(t, 30, th.WindowMaxDays)
	assert.Equal(t, 5, th.FastDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port: 0",
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "invalid server port: 99999",
		},
		{
			name:    "invalid read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = -1 * time.Second },
			wantErr: "read timeout must be positive",
		},
		{
			name:    "invalid write timeout",
			mutate:  func(c *Config) { c.Server.WriteTimeout = 0 },
			wantErr: "write timeout must be positive",
		},
		{
			name:    "cors without origins",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "at least one allowed origin",
		},
		{
			name: "cors disabled allows empty origins",
			mutate: func(c *Config) {
				c.Security.EnableCORS = false
				c.Security.AllowedOrigins = nil
			},
		},
		{
			name:    "rate limit without rps",
			mutate:  func(c *Config) { c.Security.RateLimit.RPS = 0 },
			wantErr: "rate limit rps must be positive",
		},
		{
			name: "risk thresholds out of order",
			mutate: func(c *Config) {
				c.Analytics.CriticalPct = 10
				c.Analytics.WatchPct = 20
			},
			wantErr: "risk thresholds out of order",
		},
		{
			name: "latency window inverted",
			mutate: func(c *Config) {
				c.Analytics.LatencyMinDays = 10
				c.Analytics.LatencyMaxDays = 5
			},
			wantErr: "latency window inverted",
		},
		{
			name:    "top-n above max",
			mutate:  func(c *Config) { c.Analytics.DefaultTopN = 500 },
			wantErr: "invalid default top-n",
		},
		{
			name:    "cache enabled without capacity",
			mutate:  func(c *Config) { c.Cache.MaxEntries = 0 },
			wantErr: "cache max entries must be positive",
		},
		{
			name:    "missing csv path",
			mutate:  func(c *Config) { c.Data.CSVPath = "" },
			wantErr: "data csv path must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestValidate_NormalizesLogging tests that unknown logging values are fixed
// up instead of rejected.
func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	cfg.Logging.Output = "carrier-pigeon"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	envVars := map[string]string{
		"CCLENS_SERVER_PORT":            "9191",
		"CCLENS_ANALYTICS_CRITICAL_PCT": "30",
		"CCLENS_CACHE_ENABLED":          "false",
		"CCLENS_LOGGING_LEVEL":          "debug",
	}
	for k, v := range envVars {
		old := os.Getenv(k)
		os.Setenv(k, v)
		defer func(k, old string) {
			if old == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, old)
			}
		}(k, old)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 30.0, cfg.Analytics.CriticalPct)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched fields keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_ConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
server:
  port: 7070
analytics:
  watch_pct: 12
data:
  csv_path: fixtures/complaints.csv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 12.0, cfg.Analytics.WatchPct)
	// Relative paths resolve against the executable directory.
	assert.True(t, filepath.IsAbs(cfg.Data.CSVPath))
	assert.Equal(t, "complaints.csv", filepath.Base(cfg.Data.CSVPath))
	// File did not touch the critical threshold.
	assert.Equal(t, 22.0, cfg.Analytics.CriticalPct)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Nominatim.BaseURL)
	assert.Equal(t, 1100*time.Millisecond, cfg.Nominatim.MinInterval())
	assert.Equal(t, 10*time.Second, cfg.Nominatim.Timeout())
	assert.Equal(t, "demo", cfg.GeoNames.Username)
	assert.Equal(t, "http://api.geonames.org", cfg.GeoNames.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Overpass.Timeout())
	assert.Equal(t, 2*time.Second, cfg.Overpass.MinInterval())
	assert.Equal(t, 1, cfg.Overpass.MaxParallel)
	assert.Equal(t, 15*time.Second, cfg.WorldBank.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Wikipedia.MinInterval())
	assert.Equal(t, "wpgppop", cfg.WorldPop.Dataset)
	assert.Equal(t, 2020, cfg.WorldPop.Year)
	assert.Equal(t, "NY.GDP.PCAP.CD", cfg.Income.Indicator)
	assert.Equal(t, 2020, cfg.Income.StartYear)
	assert.Equal(t, 2022, cfg.Income.EndYear)
	assert.Equal(t, 5, cfg.Income.SamplePoints)
	assert.Equal(t, int64(1000), cfg.Cache.MaxEntries)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Empty(t, cfg.Tables.Path)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
overpass:
  base_url: http://localhost:12345/api/interpreter
  min_interval_ms: 0
income:
  sample_points: 8
  end_year: 2023
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "http://localhost:12345/api/interpreter", cfg.Overpass.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Overpass.MinInterval())
	assert.Equal(t, 8, cfg.Income.SamplePoints)
	assert.Equal(t, 2023, cfg.Income.EndYear)
	// Defaults still apply for unset values
	assert.Equal(t, 45, cfg.Overpass.TimeoutSecs)
	assert.Equal(t, 2020, cfg.Income.StartYear)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("SITESCORE_LOG_LEVEL", "warn")
	t.Setenv("SITESCORE_GEONAMES_USERNAME", "acme")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "acme", cfg.GeoNames.Username)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITESCORE_SERVER_PORT=9191\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SITESCORE_SERVER_PORT") })

	require.NoError(t, LoadDotEnv())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	chdirTemp(t)
	assert.NoError(t, LoadDotEnv())
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "bad level", cfg: LogConfig{Level: "loud", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}

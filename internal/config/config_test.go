package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Engine.Limit)
	assert.False(t, cfg.Engine.Exclusions)
	assert.InDelta(t, 1000, cfg.Engine.ExclusionRadius, 0.001)
	assert.Equal(t, 400, cfg.Engine.ExclusionLimit)
	assert.InDelta(t, 30, cfg.Engine.SafetyMargin, 0.001)
	assert.Equal(t, 16, cfg.Engine.QuadrantSegments)
	assert.True(t, cfg.Engine.Fallback)
	assert.Equal(t, "constituencies", cfg.Regions.Type)
	assert.Equal(t, "geos", cfg.Regions.Kernel)
	assert.Equal(t, "data", cfg.Regions.DataDir)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.True(t, cfg.Output.Images)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://graph.facebook.com", cfg.Meta.BaseURL)
	assert.Equal(t, 1000, cfg.Meta.DailyBudget)
	assert.Equal(t, 100, cfg.Meta.BidAmount)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Trace.Enabled)
	assert.NoError(t, cfg.Validate("generate"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
engine:
  limit: 50
  exclusions: true
  padding: 500
regions:
  type: wards
  kernel: geos
store:
  driver: postgres
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Engine.Limit)
	assert.True(t, cfg.Engine.Exclusions)
	assert.InDelta(t, 500, cfg.Engine.Padding, 0.001)
	assert.Equal(t, "wards", cfg.Regions.Type)
	assert.Equal(t, "geos", cfg.Regions.Kernel)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 400, cfg.Engine.ExclusionLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("BUBBLES_STORE_DRIVER", "postgres")
	t.Setenv("BUBBLES_LOG_LEVEL", "warn")
	t.Setenv("BUBBLES_ENGINE_LIMIT", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 75, cfg.Engine.Limit)
}

func TestLoadFacebookEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FACEBOOK_ACCESS_TOKEN", "token-123")
	t.Setenv("FACEBOOK_ACCOUNT_ID", "998877")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token-123", cfg.Meta.AccessToken)
	assert.Equal(t, "998877", cfg.Meta.AccountID)
	assert.NoError(t, cfg.Validate("upload"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FACEBOOK_APP_ID=app-42\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FACEBOOK_APP_ID") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "app-42", cfg.Meta.AppID)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mode   string
		mutate func(*Config)
		want   string
	}{
		{"bad region type", "generate", func(c *Config) { c.Regions.Type = "counties" }, "regions.type"},
		{"bad kernel", "generate", func(c *Config) { c.Regions.Kernel = "jts" }, "regions.kernel"},
		{"zero concurrency", "generate", func(c *Config) { c.Batch.Concurrency = 0 }, "batch.concurrency"},
		{"bad engine", "generate", func(c *Config) { c.Engine.Limit = 0 }, "limit must be positive"},
		{"no port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no token", "upload", func(c *Config) {}, "meta.access_token"},
		{"bad threshold", "runs", func(c *Config) { c.Monitoring.FailureRateThreshold = 2 }, "failure_rate_threshold"},
		{"unknown mode", "bake", func(c *Config) {}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate(tt.mode)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, base.Validate("serve"))
	assert.NoError(t, base.Validate("summarize"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

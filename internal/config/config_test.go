package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 12, cfg.Discovery.MaxConcurrency)
	assert.Equal(t, 50, cfg.Discovery.MaxCandidates)
	assert.Equal(t, 6, cfg.Prioritize.ChunkSize)
	assert.InDelta(t, 0.4, cfg.Prioritize.Threshold, 1e-9)
	assert.Equal(t, 15, cfg.Prioritize.TimeoutSecs)
	assert.Equal(t, 2, cfg.Prioritize.MaxRequeues)
	assert.Equal(t, 12, cfg.Extract.MaxURLs)
	assert.Equal(t, 30, cfg.Extract.ScrapeTimeoutSecs)
	assert.Equal(t, 3, cfg.Quality.MinSolidHits)
	assert.Equal(t, 30, cfg.Quality.ExpandDays)
	assert.Equal(t, 45, cfg.Breaker.CooldownSecs)
	assert.True(t, cfg.Anthropic.Enabled)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
discovery:
  max_candidates: 25
anthropic:
  enabled: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Discovery.MaxCandidates)
	assert.False(t, cfg.Anthropic.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, 12, cfg.Discovery.MaxConcurrency)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EVENTSCOUT_FIRECRAWL_KEY", "fc-test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fc-test-key", cfg.Firecrawl.Key)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
}

// chdirTemp switches to an empty temp dir so a developer's config.yaml
// cannot leak into the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TAVILY_API_KEY", "tv-key")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("MODELS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxRounds)
	assert.InDelta(t, 75, cfg.QualityThreshold, 0.001)
	assert.Equal(t, 4, cfg.MaxResearchers)
	assert.Equal(t, 180*time.Second, cfg.ItemTimeout)
	assert.Equal(t, "basic", cfg.SearchDepth)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.True(t, cfg.EnableQuality)
	assert.True(t, cfg.EnableFactCheck)
	assert.Equal(t, "3000", cfg.Port)
	require.NotNil(t, cfg.Models)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_ROUNDS", "5")
	t.Setenv("QUALITY_THRESHOLD", "60.5")
	t.Setenv("SEARCH_DEPTH", "advanced")
	t.Setenv("ENABLE_FACT_CHECK", "false")
	t.Setenv("ITEM_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxRounds)
	assert.InDelta(t, 60.5, cfg.QualityThreshold, 0.001)
	assert.Equal(t, "advanced", cfg.SearchDepth)
	assert.False(t, cfg.EnableFactCheck)
	assert.Equal(t, 30*time.Second, cfg.ItemTimeout)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_ROUNDS", "many")
	t.Setenv("QUALITY_THRESHOLD", "high")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.InDelta(t, 75, cfg.QualityThreshold, 0.001)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			TavilyApiKey:     "tv",
			GoogleApiKey:     "g",
			QualityThreshold: 75,
			SearchDepth:      "basic",
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing tavily key", func(t *testing.T) {
		c := base()
		c.TavilyApiKey = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TAVILY_API_KEY")
	})

	t.Run("missing all llm keys", func(t *testing.T) {
		c := base()
		c.GoogleApiKey = ""
		c.AnthropicApiKey = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LLM API key")
	})

	t.Run("anthropic key alone suffices", func(t *testing.T) {
		c := base()
		c.GoogleApiKey = ""
		c.AnthropicApiKey = "a"
		assert.NoError(t, c.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		c := base()
		c.QualityThreshold = 120
		assert.Error(t, c.Validate())
	})

	t.Run("bad search depth", func(t *testing.T) {
		c := base()
		c.SearchDepth = "exhaustive"
		assert.Error(t, c.Validate())
	})
}

func TestLoadModelsMissingFileUsesDefaults(t *testing.T) {
	m, err := LoadModels(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	lead := m.ForAgent("lead_researcher")
	assert.Equal(t, "google", lead.Provider)
	assert.NotEmpty(t, lead.Model)
}

func TestLoadModelsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	yaml := `agents:
  lead_researcher:
    provider: anthropic
    model: claude-sonnet-4-5
    temperature: 0.5
pricing:
  claude-sonnet-4-5:
    input_per_million: 3.0
    output_per_million: 15.0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	m, err := LoadModels(path)
	require.NoError(t, err)

	lead := m.ForAgent("lead_researcher")
	assert.Equal(t, "anthropic", lead.Provider)
	assert.Equal(t, "claude-sonnet-4-5", lead.Model)

	// Roles absent from the file keep their defaults.
	sub := m.ForAgent("sub_researcher")
	assert.Equal(t, "google", sub.Provider)
}

func TestForAgentUnknownRoleFallsBack(t *testing.T) {
	m := defaultModels()
	assert.Equal(t, m.Agents["sub_researcher"], m.ForAgent("mystery_role"))
}

func TestEstimateCost(t *testing.T) {
	m := defaultModels()
	cost := m.EstimateCost("gemini-3-pro-preview", 1_000_000, 100_000)
	assert.InDelta(t, 1.25+1.0, cost, 0.0001)

	assert.Zero(t, m.EstimateCost("unknown-model", 1000, 1000))
}

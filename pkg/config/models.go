package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// ModelConfig selects the model for one agent role.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// Pricing is the cost per million tokens for one model.
type Pricing struct {
	InputPerMillion  float64 `mapstructure:"input_per_million"`
	OutputPerMillion float64 `mapstructure:"output_per_million"`
}

// ModelsConfig maps agent roles to models and models to pricing.
type ModelsConfig struct {
	Agents  map[string]ModelConfig `mapstructure:"agents"`
	Pricing map[string]Pricing     `mapstructure:"pricing"`
}

// defaultModels is used when no models.yaml exists.
func defaultModels() *ModelsConfig {
	def := ModelConfig{Provider: "google", Model: "gemini-3-flash-preview", Temperature: 0.7}
	return &ModelsConfig{
		Agents: map[string]ModelConfig{
			"lead_researcher":    {Provider: "google", Model: "gemini-3-pro-preview", Temperature: 0.7},
			"sub_researcher":     def,
			"quality_controller": def,
			"fact_checker":       def,
		},
		Pricing: map[string]Pricing{
			"gemini-3-pro-preview":   {InputPerMillion: 1.25, OutputPerMillion: 10},
			"gemini-3-flash-preview": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
		},
	}
}

// LoadModels reads the per-agent model assignments from a YAML file. A
// missing file yields the defaults; a malformed file is an error.
func LoadModels(path string) (*ModelsConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return defaultModels(), nil
		}
		return nil, fmt.Errorf("failed to read models config %s: %w", path, err)
	}

	cfg := defaultModels()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse models config %s: %w", path, err)
	}
	return cfg, nil
}

// ForAgent returns the model assignment for a role, falling back to the
// sub_researcher entry.
func (m *ModelsConfig) ForAgent(role string) ModelConfig {
	if mc, ok := m.Agents[role]; ok {
		return mc
	}
	return m.Agents["sub_researcher"]
}

// EstimateCost prices a token count against the model's rate card.
// Unknown models cost zero.
func (m *ModelsConfig) EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := m.Pricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*p.InputPerMillion + float64(outputTokens)/1e6*p.OutputPerMillion
}

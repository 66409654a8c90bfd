// Package clients constructs LLM clients for the configured providers.
package clients

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/pbellamy/research-crew/pkg/config"
)

// GoogleAI builds a Gemini client for the given model name.
func GoogleAI(ctx context.Context, apiKey, model string, temperature float64) (*googleai.GoogleAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is missing")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultTemperature(temperature))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return llm, nil
}

// ForAgent builds the LLM client assigned to an agent role in the models
// config.
func ForAgent(ctx context.Context, cfg *config.Config, role string) (llms.Model, error) {
	mc := cfg.Models.ForAgent(role)
	switch mc.Provider {
	case "google", "":
		return GoogleAI(ctx, cfg.GoogleApiKey, mc.Model, mc.Temperature)
	case "anthropic":
		return AnthropicAI(cfg.AnthropicApiKey, mc.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q for agent %s", mc.Provider, role)
	}
}

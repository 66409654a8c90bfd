// Package config loads runtime settings from the environment and the
// optional models.yaml file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TavilyApiKey    string
	GoogleApiKey    string
	AnthropicApiKey string
	DatabaseURL     string
	Port            string
	CacheDir        string
	OutputDir       string

	MaxRounds        int
	QualityThreshold float64
	MaxResearchers   int
	MaxParallel      int
	ItemTimeout      time.Duration
	SearchDepth      string
	MaxSearchResults int
	CacheTTL         time.Duration
	SearchRateLimit  float64
	EnableQuality    bool
	EnableFactCheck  bool

	Models *ModelsConfig
}

// Load reads .env (when present), the environment, and models.yaml.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		TavilyApiKey:    os.Getenv("TAVILY_API_KEY"),
		GoogleApiKey:    os.Getenv("GOOGLE_API_KEY"),
		AnthropicApiKey: os.Getenv("ANTHROPIC_API_KEY"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Port:            getEnv("PORT", "3000"),
		CacheDir:        getEnv("CACHE_DIR", ".cache"),
		OutputDir:       getEnv("OUTPUT_DIR", "research_outputs"),

		MaxRounds:        getEnvAsInt("MAX_ROUNDS", 3),
		QualityThreshold: getEnvAsFloat("QUALITY_THRESHOLD", 75),
		MaxResearchers:   getEnvAsInt("MAX_RESEARCHERS", 4),
		MaxParallel:      getEnvAsInt("MAX_PARALLEL", 4),
		ItemTimeout:      time.Duration(getEnvAsInt("ITEM_TIMEOUT_SECONDS", 180)) * time.Second,
		SearchDepth:      getEnv("SEARCH_DEPTH", "basic"),
		MaxSearchResults: getEnvAsInt("MAX_SEARCH_RESULTS", 5),
		CacheTTL:         time.Duration(getEnvAsInt("CACHE_TTL_HOURS", 24)) * time.Hour,
		SearchRateLimit:  getEnvAsFloat("SEARCH_RATE_LIMIT", 1),
		EnableQuality:    getEnvAsBool("ENABLE_QUALITY", true),
		EnableFactCheck:  getEnvAsBool("ENABLE_FACT_CHECK", true),
	}

	models, err := LoadModels(getEnv("MODELS_CONFIG", "models.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Models = models

	return cfg, nil
}

// Validate checks the settings a research run cannot proceed without.
func (c *Config) Validate() error {
	if c.TavilyApiKey == "" {
		return fmt.Errorf("TAVILY_API_KEY is not set")
	}
	if c.GoogleApiKey == "" && c.AnthropicApiKey == "" {
		return fmt.Errorf("no LLM API key set (GOOGLE_API_KEY or ANTHROPIC_API_KEY)")
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 100 {
		return fmt.Errorf("QUALITY_THRESHOLD must be in [0,100], got %.1f", c.QualityThreshold)
	}
	if c.SearchDepth != "basic" && c.SearchDepth != "advanced" {
		return fmt.Errorf("SEARCH_DEPTH must be basic or advanced, got %q", c.SearchDepth)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

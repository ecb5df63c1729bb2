package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the settings that come from the environment. Command-line
// flags are applied on top by the caller.
type Config struct {
	// Gemini
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL  string `envconfig:"GEMINI_BASE_URL"`
	AnalysisModel  string `envconfig:"FLUENT_ANALYSIS_MODEL" default:"gemini-2.0-flash"`
	SynthesisModel string `envconfig:"FLUENT_SYNTHESIS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	Voice          string `envconfig:"FLUENT_VOICE" default:"Kore"`

	// Audio
	Format       string  `envconfig:"FLUENT_FORMAT" default:"flac"`
	FallbackRate float64 `envconfig:"FLUENT_FALLBACK_RATE" default:"0.7"`

	// Logging
	LogLevel string `envconfig:"FLUENT_LOG_LEVEL" default:"info"`
	LogPath  string `envconfig:"FLUENT_LOG_PATH"`
}

// Load reads .env (if present) and then the process environment. A variable
// that is set but empty counts as unset, so its default applies.
func Load() (*Config, error) {
	unsetEmpty()
	_ = godotenv.Load()
	unsetEmpty()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

func unsetEmpty() {
	for _, kv := range os.Environ() {
		key, val, _ := strings.Cut(kv, "=")
		if val != "" {
			continue
		}
		if strings.HasPrefix(key, "FLUENT_") || strings.HasPrefix(key, "GEMINI_") {
			os.Unsetenv(key)
		}
	}
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Format {
	case "flac", "wav":
	default:
		return fmt.Errorf("unknown format %q (use flac or wav)", c.Format)
	}
	if c.FallbackRate <= 0 || c.FallbackRate > 2 {
		return fmt.Errorf("fallback rate %.2f out of range (0, 2]", c.FallbackRate)
	}
	if c.AnalysisModel == "" || c.SynthesisModel == "" {
		return fmt.Errorf("analysis and synthesis models must be set")
	}
	return nil
}

// HasAPIKey reports whether remote calls can be authenticated.
func (c *Config) HasAPIKey() bool {
	return c.GeminiAPIKey != ""
}

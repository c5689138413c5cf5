// Package config loads service configuration from the environment into
// an explicit value that is passed to every component at construction.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the service configuration.
type Config struct {
	Port          string
	MaxUploadSize int64

	// Backend selects the vision provider: "gemini" or "ollama".
	Backend      string
	GeminiAPIKey string
	OllamaURL    string
	OllamaModel  string

	AnalysisModel    string
	RestorationModel string
	VideoModel       string

	UploadsDir string
	OutputsDir string
	StaticDir  string
	DBPath     string
}

// Load reads configuration from the environment, applying defaults for
// everything except the Gemini API key, which has no safe default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             envOr("PORT", "8000"),
		Backend:          envOr("VISION_BACKEND", "gemini"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OllamaURL:        envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      os.Getenv("OLLAMA_MODEL"),
		AnalysisModel:    os.Getenv("ANALYSIS_MODEL"),
		RestorationModel: os.Getenv("RESTORATION_MODEL"),
		VideoModel:       os.Getenv("VIDEO_MODEL"),
		UploadsDir:       envOr("UPLOADS_DIR", "./uploads"),
		OutputsDir:       envOr("OUTPUTS_DIR", "./outputs"),
		StaticDir:        envOr("STATIC_DIR", "./static"),
		DBPath:           envOr("DB_PATH", "./darkroom.db"),
	}

	maxUpload := envOr("MAX_UPLOAD_SIZE", "52428800")
	size, err := strconv.ParseInt(maxUpload, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE %q: %w", maxUpload, err)
	}
	cfg.MaxUploadSize = size

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Backend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q (use 'gemini' or 'ollama')", c.Backend)
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package config centralizes environment-driven settings. main loads .env via
// godotenv before calling Load, so plain env vars and .env files both work.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string
	LLM         LLMConfig
	Pipeline    PipelineConfig
	Checkpoint  CheckpointConfig
}

// LLMConfig configures the external classification/evaluation capability.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	UseMock        bool
	MaxElapsedTime time.Duration
}

// PipelineConfig holds the orchestration knobs: context-window radius r,
// targets per classification batch b, the speaker-probe prefix length, and
// how many utterances of trailing context each question evaluation sees.
type PipelineConfig struct {
	WindowRadius           int
	BatchSize              int
	SpeakerProbeUtterances int
	TrailingContext        int
}

type CheckpointConfig struct {
	Backend string // fs, sqlite or memory
	Path    string // cache dir for fs, database file for sqlite
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "local"),
		LLM: LLMConfig{
			APIKey:         getEnv("LLM_API_KEY", ""),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:      getEnvInt("LLM_MAX_TOKENS", 2048),
			UseMock:        getEnv("USE_MOCK_LLM", "") == "true",
			MaxElapsedTime: time.Duration(getEnvInt("LLM_RETRY_CEILING_SEC", 45)) * time.Second,
		},
		Pipeline: PipelineConfig{
			WindowRadius:           getEnvInt("WINDOW_RADIUS", 2),
			BatchSize:              getEnvInt("BATCH_SIZE", 10),
			SpeakerProbeUtterances: getEnvInt("SPEAKER_PROBE_UTTERANCES", 12),
			TrailingContext:        getEnvInt("TRAILING_CONTEXT", 5),
		},
		Checkpoint: CheckpointConfig{
			Backend: getEnv("CHECKPOINT_BACKEND", "fs"),
			Path:    getEnv("CHECKPOINT_PATH", ".analysis_cache"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Pipeline.WindowRadius < 0 {
		return fmt.Errorf("window radius must be >= 0, got %d", c.Pipeline.WindowRadius)
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.SpeakerProbeUtterances < 1 {
		return fmt.Errorf("speaker probe utterances must be >= 1, got %d", c.Pipeline.SpeakerProbeUtterances)
	}
	if c.Pipeline.TrailingContext < 0 {
		return fmt.Errorf("trailing context must be >= 0, got %d", c.Pipeline.TrailingContext)
	}
	switch c.Checkpoint.Backend {
	case "fs", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if !c.LLM.UseMock && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required unless USE_MOCK_LLM=true")
	}
	return nil
}

func (c *Config) IsLocal() bool {
	return c.Environment == "" || c.Environment == "local"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

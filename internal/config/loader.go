package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr     string         `json:"addr" yaml:"addr" toml:"addr"`
	DBPath   string         `json:"db_path" yaml:"db_path" toml:"db_path"`
	LogLevel string         `json:"log_level" yaml:"log_level" toml:"log_level"`
	Model    ModelConfig    `json:"model" yaml:"model" toml:"model"`
	Sampling SamplingConfig `json:"sampling" yaml:"sampling" toml:"sampling"`
	Engine   EngineConfig   `json:"engine" yaml:"engine" toml:"engine"`
}

// ModelConfig describes the model file loaded once at startup.
type ModelConfig struct {
	Path      string `json:"path" yaml:"path" toml:"path"`
	CtxTokens int    `json:"ctx_tokens" yaml:"ctx_tokens" toml:"ctx_tokens"`
	Threads   int    `json:"threads" yaml:"threads" toml:"threads"`
	Float16   bool   `json:"float16" yaml:"float16" toml:"float16"`
}

// SamplingConfig holds the sampling defaults merged under request overrides.
type SamplingConfig struct {
	BatchSize     int     `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	RepeatLastN   int     `json:"repeat_last_n" yaml:"repeat_last_n" toml:"repeat_last_n"`
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
}

// EngineConfig holds scheduler tunables.
type EngineConfig struct {
	MaxSessions      int `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
	TickIntervalMS   int `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	NumPredict       int `json:"num_predict" yaml:"num_predict" toml:"num_predict"`
	CompletionBuffer int `json:"completion_buffer" yaml:"completion_buffer" toml:"completion_buffer"`
	MaxStallTicks    int `json:"max_stall_ticks" yaml:"max_stall_ticks" toml:"max_stall_ticks"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all salience configuration.
type Config struct {
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Search     SearchConfig     `yaml:"search"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
}

type VocabularyConfig struct {
	Scheme       string             `yaml:"scheme"`   // "frequency", "uniform", "manual"
	Fallback     string             `yaml:"fallback"` // "worst", "constant"
	FallbackCost float64            `yaml:"fallback_cost"`
	Costs        map[string]float64 `yaml:"costs"` // manual scheme only
}

type SearchConfig struct {
	MaxExpansions int    `yaml:"max_expansions"`
	MaxDepth      int    `yaml:"max_depth"`
	MaxMillis     int    `yaml:"max_millis"` // 0 means no wall-clock bound
	Workers       int    `yaml:"workers"`    // 0 means sequential
	Fallback      string `yaml:"fallback"`   // "raw", "error"
}

// MaxDuration converts the configured millisecond bound.
func (c SearchConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxMillis) * time.Millisecond
}

type ScoringConfig struct {
	Strategy  string  `yaml:"strategy"` // "raw", "normalized", "thresholded"
	Threshold float64 `yaml:"threshold"`
}

type IngestConfig struct {
	OnError string `yaml:"on_error"` // "fail", "skip"
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Vocabulary: VocabularyConfig{
			Scheme:   "frequency",
			Fallback: "worst",
		},
		Search: SearchConfig{
			MaxExpansions: 20000,
			MaxDepth:      8,
			Fallback:      "raw",
		},
		Scoring: ScoringConfig{
			Strategy: "raw",
		},
		Ingest: IngestConfig{
			OnError: "fail",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37717,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path means no
// file and returns the defaults; a path that names a missing file is an
// error, so a mistyped --config does not silently fall back.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enum-valued fields and numeric bounds.
func (c *Config) Validate() error {
	switch c.Vocabulary.Scheme {
	case "frequency", "uniform", "manual":
	default:
		return fmt.Errorf("unknown vocabulary scheme %q", c.Vocabulary.Scheme)
	}
	switch c.Vocabulary.Fallback {
	case "worst":
	case "constant":
		if c.Vocabulary.FallbackCost <= 0 {
			return fmt.Errorf("constant fallback needs a positive fallback_cost")
		}
	default:
		return fmt.Errorf("unknown vocabulary fallback %q", c.Vocabulary.Fallback)
	}
	if c.Vocabulary.Scheme == "manual" && len(c.Vocabulary.Costs) == 0 {
		return fmt.Errorf("manual vocabulary scheme needs costs")
	}
	switch c.Search.Fallback {
	case "raw", "error":
	default:
		return fmt.Errorf("unknown search fallback %q", c.Search.Fallback)
	}
	if c.Search.MaxExpansions < 0 || c.Search.MaxDepth < 0 || c.Search.MaxMillis < 0 || c.Search.Workers < 0 {
		return fmt.Errorf("search bounds must not be negative")
	}
	switch c.Ingest.OnError {
	case "fail", "skip":
	default:
		return fmt.Errorf("unknown ingest on_error policy %q", c.Ingest.OnError)
	}
	switch c.Scoring.Strategy {
	case "raw", "normalized", "thresholded":
	default:
		return fmt.Errorf("unknown scoring strategy %q", c.Scoring.Strategy)
	}
	if c.Scoring.Threshold < 0 {
		return fmt.Errorf("scoring threshold must not be negative")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

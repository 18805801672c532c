// Package config loads the application configuration from a yaml file,
// filling unset values with working defaults.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Vector   VectorConfig   `yaml:"vector"`
	Embedder LLMConfig      `yaml:"embedder"`
	Summary  LLMConfig      `yaml:"summary"`
	Search   SearchConfig   `yaml:"search"`
}

// DatabaseConfig points at the relational store holding files and tags.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// VectorConfig configures the embedding store collection.
type VectorConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

// LLMConfig points at an LLM endpoint, used for embeddings and summaries.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

// SearchConfig holds the chunking and ranking tunables. The boost exponent
// and scale pair are display-contrast heuristics tuned against the embedding
// model, not calibrated probabilities.
type SearchConfig struct {
	MinChunkSize int `yaml:"min_chunk_size"`
	MaxChunkSize int `yaml:"max_chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	BoostExponent float64 `yaml:"boost_exponent"`
	ScaleFloor    float64 `yaml:"scale_floor"`
	ScaleRange    float64 `yaml:"scale_range"`

	ExcerptFloor  float64 `yaml:"excerpt_floor"`
	ExcerptLength int     `yaml:"excerpt_length"`
	MaxExcerpts   int     `yaml:"max_excerpts"`
	Limit         int     `yaml:"limit"`

	// Synonyms overrides the built-in query-expansion table when set.
	Synonyms map[string][]string `yaml:"synonyms"`
}

// ApplyDefaults fills zero values in place.
func (c *SearchConfig) ApplyDefaults() {
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = 200
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = 1000
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 50
	}
	if c.BoostExponent <= 0 {
		c.BoostExponent = 0.65
	}
	if c.ScaleFloor <= 0 {
		c.ScaleFloor = 0.2
	}
	if c.ScaleRange <= 0 {
		c.ScaleRange = 0.8
	}
	if c.ExcerptFloor <= 0 {
		c.ExcerptFloor = 0.4
	}
	if c.ExcerptLength <= 0 {
		c.ExcerptLength = 150
	}
	if c.MaxExcerpts <= 0 {
		c.MaxExcerpts = 3
	}
	if c.Limit <= 0 {
		c.Limit = 20
	}
}

// Default returns a configuration that works without a config file: a local
// persistent chromem store and an Ollama embedder.
func Default() *Config {
	cfg := &Config{
		Vector: VectorConfig{
			Path:       "./.chromem",
			Collection: "file_contents",
		},
		Embedder: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text",
		},
	}
	cfg.Search.ApplyDefaults()
	return cfg
}

// Load reads the config at path. A missing file yields the defaults rather
// than an error, so the tool runs without any setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Search.ApplyDefaults()
	return cfg, nil
}

// Package file provides TOML-based configuration for the reportkb CLI.
// Configuration lives at ~/.reportkb/config.toml by default; every field
// has a working default so a missing file is not an error.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full reportkb configuration.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Index     IndexConfig     `toml:"index"`
	Generator GeneratorConfig `toml:"generator"`
	Converter ConverterConfig `toml:"converter"`
	Build     BuildConfig     `toml:"build"`
}

// SourceConfig describes where report files come from.
type SourceConfig struct {
	// Folder is the default folder scanned by the build command when no
	// argument is given.
	Folder string `toml:"folder"`

	// Suffixes lists accepted file extensions, lowercase with dot.
	Suffixes []string `toml:"suffixes"`
}

// ChunkingConfig controls text splitting.
type ChunkingConfig struct {
	TargetSize int `toml:"target_size"`
	Overlap    int `toml:"overlap"`
}

// LedgerConfig controls the processing ledger.
type LedgerConfig struct {
	// Path is the ledger file location. Empty means
	// <source folder>/processing_history.json.
	Path string `toml:"path"`

	// SkipPolicy is one of "by-hash", "by-name" or "never".
	SkipPolicy string `toml:"skip_policy"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself is never stored in the config file.
	APIKeyEnv string `toml:"api_key_env"`

	Dimensions int `toml:"dimensions"`

	// RequestsPerSecond rate-limits hosted providers. Zero disables limiting.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	// Provider is "sqlite" or "qdrant".
	Provider string `toml:"provider"`

	// Path is the database file for the sqlite provider.
	Path string `toml:"path"`

	// URL is the server address for the qdrant provider.
	URL string `toml:"url"`

	APIKeyEnv  string `toml:"api_key_env"`
	Collection string `toml:"collection"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	// Provider is "ollama", "openai" or "" to disable generation.
	Provider string `toml:"provider"`

	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	APIKeyEnv   string  `toml:"api_key_env"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// ConverterConfig configures document conversion.
type ConverterConfig struct {
	// DoclingURL is the docling-serve base URL used for PDF conversion.
	// Empty disables PDF support; plain text and markdown still work.
	DoclingURL string `toml:"docling_url"`

	// TimeoutSecs bounds a single file conversion.
	TimeoutSecs int `toml:"timeout_secs"`
}

// BuildConfig controls the sync run.
type BuildConfig struct {
	// BatchSize is the number of chunks flushed to the index per write.
	BatchSize int `toml:"batch_size"`

	// Workers is the number of files processed concurrently.
	Workers int `toml:"workers"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Suffixes: []string{".pdf"},
		},
		Chunking: ChunkingConfig{
			TargetSize: 1000,
			Overlap:    200,
		},
		Ledger: LedgerConfig{
			SkipPolicy: "by-hash",
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Index: IndexConfig{
			Provider:   "sqlite",
			Collection: "annual_reports",
		},
		Generator: GeneratorConfig{
			Provider:    "ollama",
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Converter: ConverterConfig{
			TimeoutSecs: 300,
		},
		Build: BuildConfig{
			BatchSize: 64,
			Workers:   1,
		},
	}
}

// DefaultPath returns ~/.reportkb/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".reportkb", "config.toml"), nil
}

// Load reads the config at path, layering file values over defaults.
// A missing file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyFallbacks()
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions,
// creating the parent directory if needed.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// applyFallbacks restores defaults zeroed out by an explicit empty value.
func (c *Config) applyFallbacks() {
	def := Default()
	if len(c.Source.Suffixes) == 0 {
		c.Source.Suffixes = def.Source.Suffixes
	}
	if c.Chunking.TargetSize <= 0 {
		c.Chunking.TargetSize = def.Chunking.TargetSize
	}
	if c.Chunking.Overlap < 0 {
		c.Chunking.Overlap = def.Chunking.Overlap
	}
	if c.Ledger.SkipPolicy == "" {
		c.Ledger.SkipPolicy = def.Ledger.SkipPolicy
	}
	if c.Index.Collection == "" {
		c.Index.Collection = def.Index.Collection
	}
	if c.Converter.TimeoutSecs <= 0 {
		c.Converter.TimeoutSecs = def.Converter.TimeoutSecs
	}
	if c.Build.BatchSize <= 0 {
		c.Build.BatchSize = def.Build.BatchSize
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = def.Build.Workers
	}
}

// Package config provides configuration loading and structs for the hanashi server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Stream    StreamConfig    `yaml:"stream"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// LLMConfig selects and tunes the text generator.
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // gemini | echo
	Model           string        `yaml:"model"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	Temperature     *float64      `yaml:"temperature,omitempty"` // unset leaves the model default
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	Preamble        string        `yaml:"preamble"`

	// APIKey is resolved from the environment, never from the YAML file.
	APIKey string `yaml:"-"`
}

// EmbeddingConfig holds knowledge base embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // mock | genai
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	// MaxTurns bounds how many past user/assistant turns go into a prompt. 0 keeps everything.
	MaxTurns       int    `yaml:"max_turns"`
	DefaultSession string `yaml:"default_session"`
}

// KnowledgeConfig holds retrieval settings.
type KnowledgeConfig struct {
	Enabled        bool    `yaml:"enabled"`
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	IngestWorkers  int     `yaml:"ingest_workers"`
}

// StreamConfig controls how answers are split and paced on the wire.
type StreamConfig struct {
	ChunkChars int           `yaml:"chunk_chars"`
	Delay      time.Duration `yaml:"delay"`
}

// WatchConfig holds directory watch settings for knowledge ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, loads .env files, resolves
// secrets from the environment, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if err := LoadDotEnv(configDir); err != nil {
		return nil, err
	}
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("gemini API key not found: set %s", c.LLM.APIKeyEnv))
		}
	case ProviderEcho:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q (supported: gemini, echo)", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case EmbeddingMock:
	case EmbeddingGenAI:
		if c.Knowledge.Enabled && c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("genai embeddings need an API key: set %s", c.LLM.APIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q (supported: mock, genai)", c.Embedding.Provider))
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		errs = append(errs, fmt.Errorf("knowledge.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize))
	}
	if c.Memory.MaxTurns < 0 {
		errs = append(errs, errors.New("memory.max_turns cannot be negative"))
	}
	return errors.Join(errs...)
}

// Save writes the config to path. Used for persisting watch directory add/remove.
// The API key is never written.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

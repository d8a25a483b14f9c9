// Package config loads and validates the assistant configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Embedding provider names.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Config is the complete assistant configuration.
type Config struct {
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	GPT           GPTConfig           `yaml:"gpt"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// KnowledgeBaseConfig configures the document corpus and index.
type KnowledgeBaseConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	DataPath    string   `yaml:"data_path"`
	IndexPath   string   `yaml:"index_path"`
	Extensions  []string `yaml:"extensions"`

	// ChunkSize budgets chunk length: characters in the default splitter,
	// tokens in markdown mode.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is accepted for configuration compatibility but unused;
	// neither splitting algorithm overlaps chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`

	SearchK               int  `yaml:"search_k"`
	UseMarkdownProcessing bool `yaml:"use_markdown_processing"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// OnError selects the failure policy: fail, skip, or degrade.
	OnError    string `yaml:"on_error"`
	MaxRetries int    `yaml:"max_retries"`
}

// GPTConfig configures the chat model.
type GPTConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		KnowledgeBase: KnowledgeBaseConfig{
			Name:        "knowledge-base",
			Description: "Document knowledge base",
			DataPath:    "data",
			IndexPath:   "knowledge_base.index",
			Extensions:  []string{"txt", "md"},
			ChunkSize:   1500,
			SearchK:     5,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      "text-embedding-3-small",
			OnError:    "degrade",
			MaxRetries: 3,
		},
		GPT: GPTConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1000,
			Temperature: 0.3,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			LogFile: "assistant.log",
		},
	}
}

// Load reads a YAML config file overlaid on the defaults. An empty path
// returns the defaults unchanged; a named file must exist and parse.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would break the
// pipeline at runtime.
func (c *Config) Validate() error {
	if c.KnowledgeBase.DataPath == "" {
		return fmt.Errorf("knowledge_base.data_path must be set")
	}
	if c.KnowledgeBase.IndexPath == "" {
		return fmt.Errorf("knowledge_base.index_path must be set")
	}
	if c.KnowledgeBase.ChunkSize <= 0 {
		return fmt.Errorf("knowledge_base.chunk_size must be positive, got %d", c.KnowledgeBase.ChunkSize)
	}
	if c.KnowledgeBase.SearchK <= 0 {
		return fmt.Errorf("knowledge_base.search_k must be positive, got %d", c.KnowledgeBase.SearchK)
	}
	if len(c.KnowledgeBase.Extensions) == 0 {
		return fmt.Errorf("knowledge_base.extensions must not be empty")
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderStatic:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderStatic, c.Embedding.Provider)
	}
	switch strings.ToLower(c.Embedding.OnError) {
	case "", "fail", "skip", "degrade":
	default:
		return fmt.Errorf("embedding.on_error must be fail, skip, or degrade, got %q", c.Embedding.OnError)
	}

	if c.GPT.Model == "" {
		return fmt.Errorf("gpt.model must be set")
	}
	if c.GPT.MaxTokens <= 0 {
		return fmt.Errorf("gpt.max_tokens must be positive, got %d", c.GPT.MaxTokens)
	}
	if c.GPT.Temperature < 0 || c.GPT.Temperature > 2 {
		return fmt.Errorf("gpt.temperature must be between 0 and 2, got %g", c.GPT.Temperature)
	}
	return nil
}

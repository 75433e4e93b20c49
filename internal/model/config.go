package model

import "time"

// Config is the complete ClaimForge configuration
type Config struct {
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Synthesis   SynthesisConfig   `yaml:"synthesis" mapstructure:"synthesis"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// LLMConfig holds decision-model provider settings
type LLMConfig struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string `yaml:"provider" mapstructure:"provider"`

	Model   string `yaml:"model" mapstructure:"model"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout for a single decision call, in seconds
	Timeout int `yaml:"timeout" mapstructure:"timeout"`

	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// RequestsPerSecond paces decision calls across a run
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// SynthesisConfig holds the engine's tunables
type SynthesisConfig struct {
	// BatchSize is how many evidence items share one decision call
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// SimilarityThreshold filters retrieval results (cosine, 0..1)
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`

	// MaxRetrieved caps claims returned per retrieval call
	MaxRetrieved int `yaml:"max_retrieved" mapstructure:"max_retrieved"`
}

// ConcurrencyConfig holds worker pool sizes
type ConcurrencyConfig struct {
	// RetrievalWorkers fan out similarity lookups within a batch
	RetrievalWorkers int `yaml:"retrieval_workers" mapstructure:"retrieval_workers"`
}

// CacheConfig holds retrieval/embedding cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logger settings
type LogConfig struct {
	// Mode: "dev" or "prod"
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN: "postgres://localhost:5432/claimforge?sslmode=disable",
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "",
			Timeout:           60,
			MaxTokens:         2000,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Synthesis: SynthesisConfig{
			BatchSize:           10,
			SimilarityThreshold: 0.5,
			MaxRetrieved:        25,
		},
		Concurrency: ConcurrencyConfig{
			RetrievalWorkers: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Log: LogConfig{
			Mode: "dev",
		},
	}
}

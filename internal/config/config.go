// Package config loads and validates the docsage configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for docsage.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Milvus     MilvusConfig     `yaml:"milvus"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// EmbeddingModel is the embedding model id.
	EmbeddingModel string `yaml:"embedding_model"`

	// ChatModel is the generation model id.
	ChatModel string `yaml:"chat_model"`

	// Temperature is the generation temperature.
	Temperature float32 `yaml:"temperature"`
}

type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

type IngestConfig struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	// Must be strictly smaller than ChunkSize.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	// K is the default number of chunks retrieved per query.
	K int `yaml:"k"`

	// PreviewLength is the character budget for source previews.
	PreviewLength int `yaml:"preview_length"`
}

type EvaluationConfig struct {
	// Enabled gates whether evaluation may run at all.
	Enabled bool `yaml:"enabled"`

	// Timeout bounds a single evaluation.
	Timeout time.Duration `yaml:"timeout"`

	// Model overrides the chat model for evaluation. Empty falls back to
	// the primary chat model.
	Model string `yaml:"model"`

	// Temperature overrides the generation temperature for evaluation.
	// Nil falls back to the primary temperature.
	Temperature *float32 `yaml:"temperature"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			Temperature:    0.0,
		},
		Milvus: MilvusConfig{
			Address:    "localhost:19530",
			Collection: "rag_documents",
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			K:             4,
			PreviewLength: 500,
		},
		Evaluation: EvaluationConfig{
			Enabled: true,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional yaml file, then applies
// environment overrides on top. Path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables referenced in the file
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func applyEnv(cfg *Config) {
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&cfg.OpenAI.ChatModel, "CHAT_MODEL")
	setFloat32(&cfg.OpenAI.Temperature, "CHAT_TEMPERATURE")

	setString(&cfg.Milvus.Address, "MILVUS_ADDRESS")
	setString(&cfg.Milvus.Collection, "COLLECTION_NAME")

	setInt(&cfg.Ingest.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Ingest.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&cfg.Retrieval.K, "RETRIEVAL_K")
	setInt(&cfg.Retrieval.PreviewLength, "PREVIEW_LENGTH")

	setBool(&cfg.Evaluation.Enabled, "EVALUATION_ENABLED")
	setDuration(&cfg.Evaluation.Timeout, "EVALUATION_TIMEOUT")
	setString(&cfg.Evaluation.Model, "EVALUATION_MODEL")
	if v, ok := os.LookupEnv("EVALUATION_TEMPERATURE"); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			t := float32(f)
			cfg.Evaluation.Temperature = &t
		}
	}

	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must be non-negative, got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.PreviewLength <= 0 {
		return fmt.Errorf("preview_length must be positive, got %d", c.Retrieval.PreviewLength)
	}
	if c.Milvus.Collection == "" {
		return fmt.Errorf("milvus collection name is required")
	}
	if c.Evaluation.Timeout <= 0 {
		return fmt.Errorf("evaluation timeout must be positive, got %s", c.Evaluation.Timeout)
	}
	return nil
}

// EvaluationModel returns the evaluation model id, falling back to the
// primary chat model when no override is set.
func (c *Config) EvaluationModel() string {
	if c.Evaluation.Model != "" {
		return c.Evaluation.Model
	}
	return c.OpenAI.ChatModel
}

// EvaluationTemperature returns the evaluation temperature, falling back to
// the primary temperature when no override is set.
func (c *Config) EvaluationTemperature() float32 {
	if c.Evaluation.Temperature != nil {
		return *c.Evaluation.Temperature
	}
	return c.OpenAI.Temperature
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat32(dst *float32, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(f)
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

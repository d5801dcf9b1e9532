package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	AI        AIConfig        `envPrefix:"ASKDB_"`
	Embedding EmbeddingConfig `envPrefix:"ASKDB_"`
	Schema    SchemaConfig    `envPrefix:"ASKDB_"`
	Database  DatabaseConfig  `envPrefix:"ASKDB_"`
	Server    ServerConfig    `envPrefix:"ASKDB_"`
	Pipeline  PipelineConfig  `envPrefix:"ASKDB_"`
	Logging   LoggingConfig   `envPrefix:"ASKDB_"`
}

// AIConfig holds the Azure OpenAI-compatible chat deployment settings.
// Generation and semantic validation are disabled when Key, Endpoint, or
// Deployment is empty.
type AIConfig struct {
	Key        string        `env:"AZURE_OPENAI_KEY"`
	Endpoint   string        `env:"AZURE_OPENAI_ENDPOINT"`
	Deployment string        `env:"AZURE_OPENAI_DEPLOYMENT" envDefault:"gpt-4o-mini"`
	APIVersion string        `env:"AZURE_OPENAI_API_VERSION" envDefault:"2024-08-01-preview"`
	Timeout    time.Duration `env:"AI_TIMEOUT"               envDefault:"60s"`
}

// Configured reports whether chat completions can be called at all
func (c AIConfig) Configured() bool {
	return c.Key != "" && c.Endpoint != "" && c.Deployment != ""
}

// EmbeddingConfig selects the embedding strategy for schema retrieval
type EmbeddingConfig struct {
	Disabled   bool   `env:"DISABLE_EMBEDDINGS"       envDefault:"true"`
	Method     string `env:"EMBEDDING_METHOD"         envDefault:"local"` // local or remote
	Deployment string `env:"AZURE_OPENAI_EMBEDDING"   envDefault:"text-embedding-3-large"`
	LocalModel string `env:"LOCAL_EMBEDDING_MODEL"    envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	Dimensions int    `env:"EMBEDDING_DIMENSIONS"     envDefault:"384"`
}

// SchemaConfig points at the two schema definition files
type SchemaConfig struct {
	EntitiesPath string `env:"ENTITIES_SCHEMA_PATH" envDefault:"entities_prod_definition.txt"`
	DMSPath      string `env:"DMS_SCHEMA_PATH"      envDefault:"dms_prod_definition.txt"`
}

// DatabaseConfig holds the read-only MySQL DSNs for the two targets
type DatabaseConfig struct {
	EntitiesDSN string `env:"ENTITIES_DB_URL"`
	DMSDSN      string `env:"DMS_DB_URL"`
	ExecuteSQL  bool   `env:"EXECUTE_SQL_AUTOMATICALLY" envDefault:"false"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr            string        `env:"ADDR"             envDefault:":5050"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// PipelineConfig tunes the generation pipeline
type PipelineConfig struct {
	MaxRetries       int    `env:"MAX_RETRIES"       envDefault:"3"`
	TopK             int    `env:"RETRIEVE_TOP_K"    envDefault:"5"`
	ValidationPolicy string `env:"VALIDATION_POLICY" envDefault:"advisory"` // advisory or strict
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, stderr
}

// Load reads configuration from a .env file (when present) and the
// environment, then validates it.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			cfg.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Logging.Format)
	}

	validLogOutputs := map[string]bool{"stdout": true, "stderr": true}
	if !validLogOutputs[strings.ToLower(cfg.Logging.Output)] {
		return fmt.Errorf("invalid log output: %s (must be stdout or stderr)", cfg.Logging.Output)
	}

	method := strings.ToLower(cfg.Embedding.Method)
	if method != "local" && method != "remote" {
		return fmt.Errorf("invalid embedding method: %s (must be local or remote)", cfg.Embedding.Method)
	}

	policy := strings.ToLower(cfg.Pipeline.ValidationPolicy)
	if policy != "advisory" && policy != "strict" {
		return fmt.Errorf(
			"invalid validation policy: %s (must be advisory or strict)",
			cfg.Pipeline.ValidationPolicy,
		)
	}

	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative: %d", cfg.Pipeline.MaxRetries)
	}

	if cfg.Pipeline.TopK <= 0 {
		return fmt.Errorf("retrieve top-k must be positive: %d", cfg.Pipeline.TopK)
	}

	return nil
}

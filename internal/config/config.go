package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	DeepSeekAPIKey  string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekAPIBase string `envconfig:"DEEPSEEK_API_BASE" default:"https://api.deepseek.com/v1"`

	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
	EmbedConcurrency   int    `envconfig:"EMBED_CONCURRENCY" default:"10"`

	ChunkWindowLines  int `envconfig:"CHUNK_WINDOW_LINES" default:"20"`
	ChunkOverlapLines int `envconfig:"CHUNK_OVERLAP_LINES" default:"5"`
	ChunkMinChars     int `envconfig:"CHUNK_MIN_CHARS" default:"8"`

	SearchTopK     int     `envconfig:"SEARCH_TOP_K" default:"5"`
	SearchMinScore float32 `envconfig:"SEARCH_MIN_SCORE" default:"0.2"`

	ProviderTimeoutSeconds int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"60"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8000"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	if c.ChunkWindowLines <= 0 {
		return fmt.Errorf("invalid CHUNK_WINDOW_LINES: %d", c.ChunkWindowLines)
	}
	if c.ChunkOverlapLines < 0 || c.ChunkOverlapLines >= c.ChunkWindowLines {
		return fmt.Errorf("invalid CHUNK_OVERLAP_LINES: %d (must satisfy 0 <= overlap < window)", c.ChunkOverlapLines)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("invalid EMBEDDING_DIMENSION: %d", c.EmbeddingDimension)
	}
	// Embeddings always go through OpenAI, so the key is required even when
	// DeepSeek handles chat.
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingRequired)
	}
	return nil
}

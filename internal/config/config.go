package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`

	TogetherAPIKey  string  `envconfig:"TOGETHER_API_KEY"`
	TogetherBaseURL string  `envconfig:"TOGETHER_BASE_URL" default:"https://api.together.xyz"`
	CompletionModel string  `envconfig:"COMPLETION_MODEL" default:"mistralai/Mixtral-8x7B-Instruct-v0.1"`
	MaxTokens       int     `envconfig:"MAX_TOKENS" default:"512"`
	Temperature     float32 `envconfig:"TEMPERATURE" default:"0.7"`
	TopP            float32 `envconfig:"TOP_P" default:"0.7"`
	// Overall timeout for one streaming completion exchange. Individual reads
	// are not bounded separately; a stalled upstream simply waits this out.
	CompletionTimeoutSeconds int `envconfig:"COMPLETION_TIMEOUT_SECONDS" default:"60"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken string `envconfig:"GOOGLE_REFRESH_TOKEN"`
	DriveFolderID      string `envconfig:"DRIVE_FOLDER_ID"`

	ChunkSize           int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap        int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	MaxRetrievalResults int     `envconfig:"MAX_RETRIEVAL_RESULTS" default:"5"`
	RelevanceThreshold  float32 `envconfig:"RELEVANCE_THRESHOLD" default:"0.3"`

	SyncStatePath     string `envconfig:"SYNC_STATE_PATH" default:"data/drive_sync_state.json"`
	SyncIntervalHours int    `envconfig:"SYNC_INTERVAL_HOURS" default:"24"`

	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
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
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrMissingRequired)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrMissingRequired)
	}
	return nil
}

// ChatEnabled reports whether the completion feature has its credentials.
// A missing key disables chat but must not prevent the rest of the API from
// serving (documents, stats, sync against an already-populated index).
func (c *Config) ChatEnabled() bool {
	return c.TogetherAPIKey != ""
}

// EmbeddingEnabled reports whether embedding-dependent features (ingestion,
// retrieval) have their credentials.
func (c *Config) EmbeddingEnabled() bool {
	return c.GeminiAPIKey != ""
}

// DriveEnabled reports whether the Google Drive source is configured.
func (c *Config) DriveEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRefreshToken != ""
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig
	Assembly  AssemblyAIConfig
	Extractor ExtractorConfig
	Zoom      ZoomConfig
	Drive     DriveConfig
	Tracker   TrackerClientConfig
	Archive   ArchiveConfig
	History   HistoryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// AssemblyAIConfig holds transcription service configuration.
type AssemblyAIConfig struct {
	APIKey       string        `envconfig:"ASSEMBLYAI_API_KEY"`
	Timeout      time.Duration `envconfig:"ASSEMBLYAI_TIMEOUT" default:"10m"`
	PollInterval time.Duration `envconfig:"ASSEMBLYAI_POLL_INTERVAL" default:"3s"`
}

// ExtractorConfig holds NLP task-extraction service configuration.
type ExtractorConfig struct {
	BaseURL string        `envconfig:"NLP_SERVICE_URL" default:"http://localhost:8000"`
	Timeout time.Duration `envconfig:"NLP_TIMEOUT" default:"30s"`
	Retries int           `envconfig:"NLP_RETRIES" default:"2"`
}

// ZoomConfig holds Zoom recording-fetch configuration.
type ZoomConfig struct {
	BaseURL string        `envconfig:"ZOOM_API_URL" default:"https://api.zoom.us"`
	Timeout time.Duration `envconfig:"ZOOM_TIMEOUT" default:"2m"`
}

// DriveConfig holds Google Drive recording-fetch configuration.
type DriveConfig struct {
	BaseURL string        `envconfig:"GDRIVE_API_URL" default:"https://www.googleapis.com"`
	Timeout time.Duration `envconfig:"GDRIVE_TIMEOUT" default:"2m"`
}

// TrackerClientConfig holds issue-tracker transport configuration. The
// tracker connection itself (URL, credentials) arrives per request.
type TrackerClientConfig struct {
	Timeout time.Duration `envconfig:"TRACKER_TIMEOUT" default:"30s"`
}

// ArchiveConfig holds MinIO recording-archive configuration. Archiving is
// best effort and disabled unless an endpoint is configured.
type ArchiveConfig struct {
	Enabled         bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	Endpoint        string `envconfig:"ARCHIVE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"ARCHIVE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"ARCHIVE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"ARCHIVE_BUCKET" default:"meeting-secretary"`
	UseSSL          bool   `envconfig:"ARCHIVE_USE_SSL" default:"false"`
}

// HistoryConfig selects the blob backend for run history.
type HistoryConfig struct {
	Backend       string `envconfig:"HISTORY_BACKEND" default:"file"` // file, redis or memory
	FilePath      string `envconfig:"HISTORY_FILE" default:"meeting-secretary-history.json"`
	StorageKey    string `envconfig:"HISTORY_KEY" default:"meeting_secretary.history.v1"`
	RedisAddr     string `envconfig:"HISTORY_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"HISTORY_REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"HISTORY_REDIS_DB" default:"0"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if present (ignore error if it doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.History.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("HISTORY_BACKEND must be file, redis or memory, got %q", c.History.Backend)
	}
	if c.Extractor.BaseURL == "" {
		return fmt.Errorf("NLP_SERVICE_URL is required")
	}
	if c.Extractor.Retries < 0 {
		return fmt.Errorf("NLP_RETRIES must not be negative")
	}
	return nil
}

// ServerAddr returns the listen address.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

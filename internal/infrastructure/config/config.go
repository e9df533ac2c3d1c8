package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Preview   PreviewConfig
	Sandbox   SandboxConfig
	Workspace WorkspaceConfig
	Export    ExportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// PreviewConfig holds preview surface configuration.
type PreviewConfig struct {
	AttachTimeout   time.Duration `envconfig:"PREVIEW_ATTACH_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PREVIEW_WRITE_TIMEOUT" default:"5s"`
	HeadlessEnabled bool          `envconfig:"PREVIEW_HEADLESS_ENABLED" default:"false"`
}

// SandboxConfig holds script sandbox configuration.
type SandboxConfig struct {
	Timeout  time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"2s"`
	PoolSize int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
}

// WorkspaceConfig holds workspace lifecycle configuration.
type WorkspaceConfig struct {
	IdleTTL      time.Duration `envconfig:"WORKSPACE_IDLE_TTL" default:"30m"`
	Max          int           `envconfig:"WORKSPACE_MAX" default:"256"`
	TemplatesDir string        `envconfig:"TEMPLATES_DIR"`
}

// ExportConfig holds project archive configuration.
type ExportConfig struct {
	FileName         string        `envconfig:"EXPORT_FILENAME" default:"CodeCanvasProject"`
	ImportMaxBytes   int64         `envconfig:"IMPORT_MAX_BYTES" default:"10485760"`
	ImportURLEnabled bool          `envconfig:"IMPORT_URL_ENABLED" default:"false"`
	ImportURLTimeout time.Duration `envconfig:"IMPORT_URL_TIMEOUT" default:"15s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Preview: PreviewConfig{
			AttachTimeout: 10 * time.Second,
			WriteTimeout:  5 * time.Second,
		},
		Sandbox: SandboxConfig{
			Timeout:  2 * time.Second,
			PoolSize: 4,
		},
		Workspace: WorkspaceConfig{
			IdleTTL: 30 * time.Minute,
			Max:     256,
		},
		Export: ExportConfig{
			FileName:         "CodeCanvasProject",
			ImportMaxBytes:   10 << 20,
			ImportURLTimeout: 15 * time.Second,
		},
	}
}

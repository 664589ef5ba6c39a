// Package core provides configuration loading and the API error taxonomy
// shared by all other packages.
package core

import (
	"fmt"
	"time"
)

// Config holds all service configuration loaded from the environment.
// Once loaded it is treated as read-only; no component mutates it.
type Config struct {
	// Server
	Host    string // Bind address for the HTTP server
	Port    int    // Listen port
	BaseURL string // Optional base URL override for generated image links
	DevMode bool   // Development mode (console log format, debug level)
	LogFile string // Path to the rotating log file

	// Model backend
	BackendKind   string        // "stub" or "openai"
	ModelName     string        // Model identifier reported by /v1/models
	RemoteBaseURL string        // OpenAI-compatible endpoint for the remote backend
	RemoteAPIKey  string        // API key for the remote backend
	LoadTimeout   time.Duration // Ceiling for model initialization

	// Image constraints
	MinImageSize     int // Minimum width/height in pixels
	MaxImageSize     int // Maximum width/height in pixels
	DefaultImageSize int // Used when a request omits size

	// Generation parameter bounds
	MaxBatchSize          int     // Upper bound for the n parameter
	MaxInferenceSteps     int     // Upper bound for num_inference_steps
	DefaultGuidanceScale  float64 // Used when a request omits guidance_scale
	DefaultInferenceSteps int     // Used when a request omits num_inference_steps

	// Admission control
	MaxImageBytes   int64         // Ceiling for a single base64 image payload
	MaxRequestBytes int64         // Ceiling for the whole request body
	RateLimitCount  int           // Max requests per client within the window
	RateLimitWindow time.Duration // Trailing rate-limit window

	// Dispatch
	WorkerCount int // Concurrency ceiling for model calls

	// Storage
	OutputDir    string // Root directory for persisted images
	StaticPrefix string // URL prefix under which OutputDir is served
	HistoryDB    string // Path to the SQLite processing-history database
	CatalogPath  string // Path to the model catalog YAML (optional)
}

// Default configuration values. Bounds mirror the limits the model itself
// tolerates; admission defaults match the published API limits.
const (
	DefaultPort              = 8000
	DefaultMinImageSize      = 256
	DefaultMaxImageSize      = 2048
	DefaultImageSizePx       = 1024
	DefaultMaxBatchSize      = 4
	DefaultMaxSteps          = 50
	DefaultGuidance          = 2.5
	DefaultSteps             = 28
	DefaultMaxImageBytes     = 10 * 1024 * 1024
	DefaultMaxRequestBytes   = 50 * 1024 * 1024
	DefaultRateLimitCount    = 100
	DefaultRateWindowSeconds = 3600
	DefaultWorkerCount       = 2
	DefaultLoadTimeoutSec    = 600
)

// LoadConfig reads service configuration from the environment.
// Missing variables fall back to defaults; malformed values also fall back
// rather than failing, matching the env-parse helpers' behavior. Call
// Validate afterwards to catch logically inconsistent combinations.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Host:    GetEnvOrDefault("HOST", "0.0.0.0"),
		Port:    ParseIntEnv("PORT", DefaultPort),
		BaseURL: GetEnvOrDefault("BASE_URL", ""),
		DevMode: ParseBoolEnv("DEV_MODE", false),
		LogFile: GetEnvOrDefault("LOG_FILE", "flux_backend.log"),

		BackendKind:   GetEnvOrDefault("MODEL_BACKEND", "stub"),
		ModelName:     GetEnvOrDefault("MODEL_NAME", "flux.1-kontext-dev"),
		RemoteBaseURL: GetEnvOrDefault("REMOTE_BASE_URL", ""),
		RemoteAPIKey:  GetEnvOrDefault("REMOTE_API_KEY", ""),
		LoadTimeout:   ParseDurationEnv("MODEL_LOAD_TIMEOUT_SECONDS", DefaultLoadTimeoutSec),

		MinImageSize:     ParseIntEnv("MIN_IMAGE_SIZE", DefaultMinImageSize),
		MaxImageSize:     ParseIntEnv("MAX_IMAGE_SIZE", DefaultMaxImageSize),
		DefaultImageSize: ParseIntEnv("DEFAULT_IMAGE_SIZE", DefaultImageSizePx),

		MaxBatchSize:          ParseIntEnv("MAX_BATCH_SIZE", DefaultMaxBatchSize),
		MaxInferenceSteps:     ParseIntEnv("MAX_INFERENCE_STEPS", DefaultMaxSteps),
		DefaultGuidanceScale:  ParseFloat64Env("DEFAULT_GUIDANCE_SCALE", DefaultGuidance),
		DefaultInferenceSteps: ParseIntEnv("DEFAULT_INFERENCE_STEPS", DefaultSteps),

		MaxImageBytes:   ParseInt64Env("MAX_IMAGE_BYTES", DefaultMaxImageBytes),
		MaxRequestBytes: ParseInt64Env("MAX_REQUEST_BYTES", DefaultMaxRequestBytes),
		RateLimitCount:  ParseIntEnv("RATE_LIMIT_COUNT", DefaultRateLimitCount),
		RateLimitWindow: ParseDurationEnv("RATE_LIMIT_WINDOW_SECONDS", DefaultRateWindowSeconds),

		WorkerCount: ParseIntEnv("MAX_CONCURRENT", DefaultWorkerCount),

		OutputDir:    GetEnvOrDefault("OUTPUT_DIR", "static/outputs"),
		StaticPrefix: GetEnvOrDefault("STATIC_PREFIX", "/static"),
		HistoryDB:    GetEnvOrDefault("HISTORY_DB_PATH", "data/history.db"),
		CatalogPath:  GetEnvOrDefault("MODEL_CATALOG_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for logically inconsistent values.
// It returns the first problem found as a ConfigError.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidConfig("PORT", fmt.Sprintf("%d is not a valid port", c.Port))
	}
	if c.MinImageSize <= 0 || c.MaxImageSize <= 0 || c.MinImageSize > c.MaxImageSize {
		return ErrInvalidConfig("MIN_IMAGE_SIZE/MAX_IMAGE_SIZE",
			fmt.Sprintf("invalid bounds %d..%d", c.MinImageSize, c.MaxImageSize))
	}
	if c.DefaultImageSize < c.MinImageSize || c.DefaultImageSize > c.MaxImageSize {
		return ErrInvalidConfig("DEFAULT_IMAGE_SIZE",
			fmt.Sprintf("%d is outside %d..%d", c.DefaultImageSize, c.MinImageSize, c.MaxImageSize))
	}
	if c.MaxBatchSize < 1 {
		return ErrInvalidConfig("MAX_BATCH_SIZE", "must be at least 1")
	}
	if c.MaxInferenceSteps < 1 {
		return ErrInvalidConfig("MAX_INFERENCE_STEPS", "must be at least 1")
	}
	if c.WorkerCount < 1 {
		return ErrInvalidConfig("MAX_CONCURRENT", "must be at least 1")
	}
	if c.RateLimitCount < 1 || c.RateLimitWindow <= 0 {
		return ErrInvalidConfig("RATE_LIMIT_COUNT/RATE_LIMIT_WINDOW_SECONDS", "must be positive")
	}
	if c.MaxImageBytes <= 0 || c.MaxRequestBytes <= 0 {
		return ErrInvalidConfig("MAX_IMAGE_BYTES/MAX_REQUEST_BYTES", "must be positive")
	}
	switch c.BackendKind {
	case "stub":
	case "openai":
		if c.RemoteBaseURL == "" {
			return ErrMissingConfig("REMOTE_BASE_URL")
		}
		if c.RemoteAPIKey == "" {
			return ErrMissingConfig("REMOTE_API_KEY")
		}
	default:
		return ErrInvalidConfig("MODEL_BACKEND",
			fmt.Sprintf("unknown backend %q (expected stub or openai)", c.BackendKind))
	}
	return nil
}

// ListenAddr returns the host:port pair the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

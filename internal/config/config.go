// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the shared store: memory or badger.
	StoreBackend string `koanf:"store_backend"`

	// BadgerDir is the data directory for the badger backend.
	BadgerDir string `koanf:"badger_dir"`

	// StoreShardCount configures the number of shards in the memory store.
	StoreShardCount int `koanf:"store_shard_count"`

	// Rate-limit rules as "N/period" strings with period in
	// {second, minute, hour}; anything else means per day.
	RateLimitTasks    string `koanf:"rate_limit_tasks"`
	RateLimitBatch    string `koanf:"rate_limit_batch"`
	RateLimitSessions string `koanf:"rate_limit_sessions"`
	RateLimitDefault  string `koanf:"rate_limit_default"`

	// PlatformMaxComplexity caps task complexity regardless of profile.
	PlatformMaxComplexity int `koanf:"platform_max_complexity"`

	// AssignmentTTLSeconds bounds how long an assignment stays valid.
	AssignmentTTLSeconds int `koanf:"assignment_ttl_seconds"`

	// LeaseTTLSeconds bounds the exclusive claim on a handed-out task.
	LeaseTTLSeconds int `koanf:"lease_ttl_seconds"`

	// SessionTTLSeconds bounds session, profile and counter lifetime.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// MaxBatchSize caps GET /v1/tasks/batch?count.
	MaxBatchSize int `koanf:"max_batch_size"`

	// DedupeSize bounds the in-process duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":8080",
		StoreBackend:          "memory",
		BadgerDir:             "data/store",
		StoreShardCount:       8,
		RateLimitTasks:        "60/minute",
		RateLimitBatch:        "10/minute",
		RateLimitSessions:     "20/minute",
		RateLimitDefault:      "120/minute",
		PlatformMaxComplexity: 3,
		AssignmentTTLSeconds:  3600,
		LeaseTTLSeconds:       300,
		SessionTTLSeconds:     86400,
		MaxBatchSize:          100,
		DedupeSize:            50000,
	}
}

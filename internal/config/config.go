// Package config handles application configuration management.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Farrierly data ($XDG_DATA_HOME/farrierly)
	BaseDir string

	// UserID is the signed-in account every repository call acts for.
	UserID string

	// Remote backend settings
	Remote RemoteConfig

	// Sync engine settings
	Sync SyncConfig

	// Debug enables SQL logging.
	Debug bool
}

// RemoteConfig holds the cloud backend connection settings.
type RemoteConfig struct {
	URL         string
	APIKey      string
	AccessToken string
	RateLimit   int // Requests per minute
	Timeout     time.Duration
}

// Configured reports whether a backend URL is set.
func (r RemoteConfig) Configured() bool {
	return r.URL != ""
}

// SyncConfig holds queue and scheduler tuning.
type SyncConfig struct {
	PeriodicInterval   time.Duration
	Debounce           time.Duration
	BatchLimit         int
	MaxRetries         int // Zero retries forever
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	CompletedRetention time.Duration
	AutoCoalesce       bool
	Concurrency        int
	ConflictCheck      bool
	// PushOnWrite drains once at the end of every CLI command that wrote.
	PushOnWrite        bool
	// WatchInterval is how often the daemon checks for writes made by
	// other processes.
	WatchInterval      time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dir := os.Getenv("FARRIERLY_HOME"); dir != "" {
		cfg.BaseDir = dir
	}

	if id := os.Getenv("FARRIERLY_USER_ID"); id != "" {
		cfg.UserID = id
	}

	if url := os.Getenv("FARRIERLY_REMOTE_URL"); url != "" {
		cfg.Remote.URL = url
	}

	if key := os.Getenv("FARRIERLY_API_KEY"); key != "" {
		cfg.Remote.APIKey = key
	}

	if token := os.Getenv("FARRIERLY_ACCESS_TOKEN"); token != "" {
		cfg.Remote.AccessToken = token
	}

	if d, ok := envDuration("FARRIERLY_SYNC_INTERVAL"); ok {
		cfg.Sync.PeriodicInterval = d
	}

	if n, ok := envInt("FARRIERLY_SYNC_CONCURRENCY"); ok && n > 0 {
		cfg.Sync.Concurrency = n
	}

	if n, ok := envInt("FARRIERLY_SYNC_MAX_RETRIES"); ok && n >= 0 {
		cfg.Sync.MaxRetries = n
	}

	if v := os.Getenv("FARRIERLY_SYNC_PUSH_ON_WRITE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sync.PushOnWrite = b
		}
	}

	if d, ok := envDuration("FARRIERLY_SYNC_WATCH_INTERVAL"); ok {
		cfg.Sync.WatchInterval = d
	}

	if v := os.Getenv("FARRIERLY_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	// Ensure directories exist
	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		filepath.Join(cfg.BaseDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

package config

import "time"

// DefaultUserID is used until an account signs in.
const DefaultUserID = "local"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),
		UserID:  DefaultUserID,

		Remote: RemoteConfig{
			RateLimit: 600,
			Timeout:   30 * time.Second,
		},

		Sync: SyncConfig{
			PeriodicInterval:   15 * time.Minute,
			Debounce:           2 * time.Second,
			BatchLimit:         50,
			MaxRetries:         5,
			BaseBackoff:        time.Minute,
			MaxBackoff:         time.Hour,
			CompletedRetention: 24 * time.Hour,
			AutoCoalesce:       true,
			Concurrency:        1,
			ConflictCheck:      true,
			PushOnWrite:        true,
			WatchInterval:      5 * time.Second,
		},
	}
}

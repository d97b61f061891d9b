package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database string // Local SQLite cache
	Prefs    string // Preferences file
	Logs     string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "farrierly.db"),
		Prefs:    filepath.Join(cfg.BaseDir, "prefs.yaml"),
		Logs:     filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory ($XDG_DATA_HOME/farrierly).
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "farrierly")
}

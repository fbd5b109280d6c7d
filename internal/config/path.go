// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// DefaultDatabasePath is where the database lives when database.path is unset.
func DefaultDatabasePath() string {
	return ExpandPath(filepath.Join("~", ".local", "share", "mslab", "mslab.db"))
}

// DefaultConfigDir is searched for config.yaml.
func DefaultConfigDir() string {
	return ExpandPath(filepath.Join("~", ".config", "mslab"))
}

// Package config loads the engine configuration from defaults, an optional
// YAML or TOML file, and GOGINE_* environment variables.
package config

import (
	"time"
)

// Feeder populates a configuration structure from one source
type Feeder interface {
	Feed(structure any) error
}

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Source describes a configuration source consulted by Load
type Source struct {
	Name       string     `json:"name"`     // e.g., "defaults", "file", "environment"
	Type       string     `json:"type"`     // e.g., "default", "yaml", "toml", "env"
	Location   string     `json:"location"` // file path or env prefix
	Loaded     bool       `json:"loaded"`
	LastLoaded *time.Time `json:"last_loaded,omitempty"`
	Error      string     `json:"error,omitempty"`
}

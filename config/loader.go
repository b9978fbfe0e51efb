package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/gogine/feeders"
)

// Load builds the configuration from the process environment
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds the configuration using lookup for environment variables.
// Sources apply in order: defaults, the file named by GOGINE_CONFIG, then
// GOGINE_* variables. The result is validated.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := Default()
	cfg.LogLevel = ""
	cfg.sources = append(cfg.sources, loadedSource("defaults", "default", ""))

	env := feeders.EnvFeeder{Prefix: EnvPrefix, Lookup: feeders.LookupFunc(lookup)}

	if path, ok := lookup(env.VarName("CONFIG")); ok && strings.TrimSpace(path) != "" {
		cfg.ConfigFile = strings.TrimSpace(path)
		fileFeeder, err := feeders.ForFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := fileFeeder.Feed(cfg); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		cfg.sources = append(cfg.sources, loadedSource("file", fileType(cfg.ConfigFile), cfg.ConfigFile))
	}

	if err := env.Feed(cfg); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}
	cfg.sources = append(cfg.sources, loadedSource("environment", "env", EnvPrefix+"_*"))

	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DerivedLogLevel(cfg.Environment)
	} else {
		cfg.logLevelSet = true
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	}
	if cfg.SchedulerTick == "" {
		cfg.SchedulerTick = DefaultSchedulerTick
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadedSource(name, typ, location string) Source {
	now := time.Now()
	return Source{Name: name, Type: typ, Location: location, Loaded: true, LastLoaded: &now}
}

func fileType(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "GOGINE"

	// DefaultEnvironment is used when GOGINE_ENV is unset
	DefaultEnvironment = "development"

	// DefaultStopTimeout bounds each subsystem Shutdown call
	DefaultStopTimeout = 30 * time.Second

	// DefaultSchedulerTick is the heartbeat schedule of the scheduler subsystem
	DefaultSchedulerTick = "@every 1s"
)

// Validation errors
var (
	ErrEmptyEnvironment    = errors.New("environment must not be empty")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrNegativeStopTimeout = errors.New("stop timeout must not be negative")
	ErrWatchWithoutFile    = errors.New("config watch requires a config file")
	ErrRestartWithoutWatch = errors.New("restart on config change requires config watch")
	ErrEmptySchedulerTick  = errors.New("scheduler tick must not be empty")
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"", "console", "json"}
)

// Config holds the engine settings. It is built once and shared read-only.
type Config struct {
	Environment           string        `yaml:"environment" toml:"environment" env:"ENV"`
	LogLevel              string        `yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	LogFormat             string        `yaml:"log_format" toml:"log_format" env:"LOG_FORMAT"`
	ConfigFile            string        `yaml:"-" toml:"-" env:"CONFIG"`
	StopTimeout           time.Duration `yaml:"stop_timeout" toml:"stop_timeout" env:"STOP_TIMEOUT"`
	DisabledSystems       []string      `yaml:"disabled_systems" toml:"disabled_systems" env:"DISABLED_SYSTEMS"`
	StatusAddr            string        `yaml:"status_addr" toml:"status_addr" env:"STATUS_ADDR"`
	ConfigWatch           bool          `yaml:"config_watch" toml:"config_watch" env:"CONFIG_WATCH"`
	RestartOnConfigChange bool          `yaml:"restart_on_config_change" toml:"restart_on_config_change" env:"RESTART_ON_CONFIG_CHANGE"`
	SchedulerTick         string        `yaml:"scheduler_tick" toml:"scheduler_tick" env:"SCHEDULER_TICK"`

	logLevelSet bool
	sources     []Source
}

// Default returns the configuration used when no source overrides anything
func Default() *Config {
	return &Config{
		Environment:   DefaultEnvironment,
		LogLevel:      DerivedLogLevel(DefaultEnvironment),
		StopTimeout:   DefaultStopTimeout,
		SchedulerTick: DefaultSchedulerTick,
	}
}

// DerivedLogLevel maps an environment to its configured log level.
// production and staging log at info, everything else at debug.
func DerivedLogLevel(environment string) string {
	switch strings.ToLower(environment) {
	case "production", "prod", "staging":
		return "info"
	default:
		return "debug"
	}
}

// IsDevelopment reports whether the environment is development or dev
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev":
		return true
	}
	return false
}

// IsProduction reports whether the environment is production or prod
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "production", "prod":
		return true
	}
	return false
}

// LogLevelOverridden reports whether LogLevel came from a file or the
// environment rather than being derived from Environment.
func (c *Config) LogLevelOverridden() bool {
	return c.logLevelSet
}

// SystemDisabled reports whether name appears in DisabledSystems
func (c *Config) SystemDisabled(name string) bool {
	return slices.Contains(c.DisabledSystems, name)
}

// Sources returns the sources consulted by Load, in the order applied
func (c *Config) Sources() []Source {
	return slices.Clone(c.sources)
}

// Validate checks the configuration for values the engine cannot use
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Environment) == "" {
		return ErrEmptyEnvironment
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeStopTimeout, c.StopTimeout)
	}
	if c.ConfigWatch && c.ConfigFile == "" {
		return ErrWatchWithoutFile
	}
	if c.RestartOnConfigChange && !c.ConfigWatch {
		return ErrRestartWithoutWatch
	}
	if strings.TrimSpace(c.SchedulerTick) == "" {
		return ErrEmptySchedulerTick
	}
	return nil
}

// Package gogine orchestrates the lifecycle of an engine's subsystems:
// ordered startup, waiting for a shutdown condition, and reverse-order
// teardown with per-subsystem failure isolation.
package gogine

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/gogine/config"
	"github.com/GoCodeAlone/gogine/registry"
	"github.com/GoCodeAlone/gogine/shutdown"
)

// Subsystem is a component with a startup and a shutdown step.
type Subsystem = registry.Subsystem

// State is the shared application context: configuration, the shutdown
// signal, the subsystem registry, and the logger. Build it with Initialize.
type State struct {
	config   *config.Config
	shutdown *shutdown.Signal
	registry *registry.Registry
	logger   Logger
	metrics  *Metrics

	observers     map[string]*observerRegistration
	observerMutex sync.RWMutex
}

// Option configures Initialize
type Option func(*State)

// WithLogger sets the logger used by the state and its runners
func WithLogger(logger Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records lifecycle metrics to m
func WithMetrics(m *Metrics) Option {
	return func(s *State) {
		s.metrics = m
	}
}

// Initialize builds the application state from cfg. It is the single
// construction point for State.
func Initialize(cfg *config.Config, opts ...Option) (*State, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	s := &State{
		config:    cfg,
		shutdown:  shutdown.New(),
		registry:  registry.New(),
		logger:    nopLogger{},
		observers: make(map[string]*observerRegistration),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("Application state initialized", "environment", cfg.Environment)
	return s, nil
}

// Config returns the shared configuration. Callers must not modify it.
func (s *State) Config() *config.Config {
	return s.config
}

// Shutdown returns the shutdown signal shared by all subsystems
func (s *State) Shutdown() *shutdown.Signal {
	return s.shutdown
}

// Registry returns the subsystem registry
func (s *State) Registry() *registry.Registry {
	return s.registry
}

// Logger returns the state's logger
func (s *State) Logger() Logger {
	return s.logger
}

// Metrics returns the metrics recorder, or nil when metrics are disabled
func (s *State) Metrics() *Metrics {
	return s.metrics
}

// RegisterSystem appends a subsystem under name. Names are expected to be
// unique but duplicates are accepted.
func (s *State) RegisterSystem(name string, subsystem Subsystem) error {
	if err := s.registry.Register(name, subsystem); err != nil {
		return fmt.Errorf("register subsystem %s: %w", name, err)
	}

	s.logger.Debug("Registered subsystem", "subsystem", name, "type", fmt.Sprintf("%T", subsystem))
	s.metrics.setRegistered(s.registry.Len())
	s.emitEvent(context.Background(), EventTypeSubsystemRegistered, map[string]any{
		"subsystem": name,
		"type":      fmt.Sprintf("%T", subsystem),
	})
	return nil
}

// SetSystemEnabled enables or disables every subsystem registered under name
func (s *State) SetSystemEnabled(name string, enabled bool) error {
	if err := s.registry.SetEnabled(name, enabled); err != nil {
		return fmt.Errorf("set subsystem %s enabled=%t: %w", name, enabled, err)
	}
	s.logger.Debug("Subsystem enablement changed", "subsystem", name, "enabled", enabled)
	return nil
}

// SystemCount returns the number of registered subsystems, enabled or not
func (s *State) SystemCount() int {
	return s.registry.Len()
}

// Package registry defines the ordered subsystem registry driven by the runner
package registry

import (
	"context"
)

// Subsystem is a unit with a two-phase lifecycle managed by the Registry.
// The registry never inspects anything beyond these two methods.
type Subsystem interface {
	// Startup acquires the subsystem's resources. It is called once per run,
	// in registration order.
	Startup(ctx context.Context) error

	// Shutdown releases the subsystem's resources. It is called once per run,
	// in reverse registration order. The context carries the stop deadline.
	Shutdown(ctx context.Context) error
}

// Order selects the direction of a sweep over the registry.
type Order int

const (
	// Forward visits entries in registration order (startup).
	Forward Order = iota
	// Reverse visits entries in reverse registration order (shutdown).
	Reverse
)

// String returns the sweep direction name
func (o Order) String() string {
	switch o {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// EntryInfo is a read-only snapshot of one registry entry.
type EntryInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Index   int    `json:"index"`
}

// VisitFunc is invoked for each enabled entry during a sweep. Returning a
// non-nil error stops the sweep.
type VisitFunc func(name string, subsystem Subsystem) error

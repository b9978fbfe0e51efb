// Package systems holds the engine's built-in subsystems. Platform, Render
// and ECS only track their lifecycle state; the scheduler, status and
// configwatch subpackages do real work.
package systems

import (
	"context"
	"sync/atomic"

	"github.com/GoCodeAlone/gogine"
)

// Placeholder is a subsystem whose startup and shutdown always succeed
type Placeholder struct {
	name    string
	logger  gogine.Logger
	started atomic.Bool
	stopped atomic.Bool
}

// NewPlatform creates the subsystem owning windowing and OS input
func NewPlatform(logger gogine.Logger) *Placeholder {
	return &Placeholder{name: "platform", logger: logger}
}

// NewRender creates the subsystem owning the graphics device
func NewRender(logger gogine.Logger) *Placeholder {
	return &Placeholder{name: "render", logger: logger}
}

// NewECS creates the entity component system subsystem
func NewECS(logger gogine.Logger) *Placeholder {
	return &Placeholder{name: "ecs", logger: logger}
}

// Name is the name the subsystem registers under
func (p *Placeholder) Name() string { return p.name }

func (p *Placeholder) Startup(ctx context.Context) error {
	p.started.Store(true)
	p.stopped.Store(false)
	p.logger.Debug("Subsystem ready", "subsystem", p.name)
	return nil
}

func (p *Placeholder) Shutdown(ctx context.Context) error {
	p.stopped.Store(true)
	p.started.Store(false)
	p.logger.Debug("Subsystem released", "subsystem", p.name)
	return nil
}

// Running reports whether Startup ran without a later Shutdown
func (p *Placeholder) Running() bool { return p.started.Load() }

// Stopped reports whether Shutdown ran
func (p *Placeholder) Stopped() bool { return p.stopped.Load() }

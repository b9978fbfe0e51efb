package gogine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/gogine/config"
	"github.com/GoCodeAlone/gogine/registry"
)

// Phase is the runner's position in the lifecycle
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseStopping
	PhaseStopped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunOption configures a Runner
type RunOption func(*Runner)

// WithInterruptSource replaces the OS signal listener
func WithInterruptSource(source InterruptSource) RunOption {
	return func(r *Runner) {
		if source != nil {
			r.interrupt = source
		}
	}
}

// WithStopTimeout bounds each subsystem Shutdown call. Non-positive values
// select the default.
func WithStopTimeout(d time.Duration) RunOption {
	return func(r *Runner) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// WithStartupRollback shuts down already-started subsystems, in reverse
// order, when a later subsystem fails to start.
func WithStartupRollback() RunOption {
	return func(r *Runner) {
		r.rollback = true
	}
}

// Runner drives one lifecycle pass over a State's registry. A Runner runs
// at most once.
type Runner struct {
	state       *State
	interrupt   InterruptSource
	stopTimeout time.Duration
	rollback    bool

	phase       atomic.Int32
	ran         atomic.Bool
	mu          sync.Mutex
	shutdownErr error
}

// NewRunner creates a runner for state
func NewRunner(state *State, opts ...RunOption) *Runner {
	r := &Runner{
		state:       state,
		interrupt:   OSInterrupt,
		stopTimeout: config.DefaultStopTimeout,
	}
	if state != nil && state.config != nil && state.config.StopTimeout > 0 {
		r.stopTimeout = state.config.StopTimeout
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts every enabled subsystem, waits for an interrupt or the
// shutdown signal, then stops them in reverse order.
func Run(ctx context.Context, state *State, opts ...RunOption) error {
	return NewRunner(state, opts...).Run(ctx)
}

// Phase returns the current lifecycle phase
func (r *Runner) Phase() Phase {
	return Phase(r.phase.Load())
}

// ShutdownErr returns the shutdown failures collected by the last run,
// combined with multierr. Shutdown failures never change Run's result.
func (r *Runner) ShutdownErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdownErr
}

// Run executes the lifecycle. It returns a *SubsystemError when a subsystem
// fails to start, registry.ErrRegistryPoisoned when a lifecycle call
// panicked, and nil once every started subsystem was asked to stop.
func (r *Runner) Run(ctx context.Context) error {
	if r.state == nil {
		return ErrStateNil
	}
	if !r.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	logger := r.state.logger

	r.setPhase(PhaseStarting)
	started, err := r.startSubsystems(ctx)
	if err != nil {
		logger.Error("Startup aborted", "error", err, "started", len(started))
		if r.rollback && len(started) > 0 && !errors.Is(err, registry.ErrRegistryPoisoned) {
			logger.Warn("Rolling back started subsystems", "count", len(started))
			if rbErr := r.stopSubsystems(ctx, started); rbErr != nil {
				r.recordShutdownErr(rbErr)
			}
		}
		r.setPhase(PhaseFailed)
		r.state.emitEvent(ctx, EventTypeRunnerFailed, map[string]any{"error": err.Error()})
		return err
	}

	r.setPhase(PhaseRunning)
	r.state.emitEvent(ctx, EventTypeRunnerStarted, map[string]any{"subsystems": len(started)})
	logger.Info("Subsystems started, waiting for shutdown", "count", len(started))

	r.wait(ctx)

	r.setPhase(PhaseStopping)
	r.state.emitEvent(ctx, EventTypeRunnerStopping, nil)
	if err := r.stopSubsystems(ctx, started); err != nil {
		if errors.Is(err, registry.ErrRegistryPoisoned) {
			r.setPhase(PhaseFailed)
			r.state.emitEvent(ctx, EventTypeRunnerFailed, map[string]any{"error": err.Error()})
			return err
		}
		r.recordShutdownErr(err)
	}

	r.setPhase(PhaseStopped)
	r.state.emitEvent(ctx, EventTypeRunnerStopped, nil)
	logger.Info("All subsystems stopped")
	return nil
}

// outcome is the result of one lifecycle call, reported once the sweep has
// released the registry lock so observers may read the state.
type outcome struct {
	name string
	op   string
	err  error
}

func (r *Runner) report(ctx context.Context, outcomes []outcome) {
	for _, o := range outcomes {
		switch o.op {
		case OpStartup:
			r.state.metrics.observeStartup(o.name, o.err == nil)
		case OpShutdown:
			r.state.metrics.observeShutdown(o.name, o.err == nil)
		}

		if o.err != nil {
			r.state.emitEvent(ctx, EventTypeSubsystemFailed, map[string]any{
				"subsystem": o.name, "op": o.op, "error": o.err.Error(),
			})
			continue
		}
		eventType := EventTypeSubsystemStarted
		if o.op == OpShutdown {
			eventType = EventTypeSubsystemStopped
		}
		r.state.emitEvent(ctx, eventType, map[string]any{"subsystem": o.name})
	}
}

// startSubsystems sweeps forward, stopping at the first failure. It returns
// handles to the subsystems that started, in start order.
func (r *Runner) startSubsystems(ctx context.Context) ([]registry.Handle, error) {
	logger := r.state.logger

	var outcomes []outcome
	started, err := r.state.registry.StartSweep(func(name string, subsystem registry.Subsystem) error {
		logger.Info("Starting subsystem", "subsystem", name)
		if err := subsystem.Startup(ctx); err != nil {
			outcomes = append(outcomes, outcome{name: name, op: OpStartup, err: err})
			return &SubsystemError{Name: name, Op: OpStartup, Err: err}
		}
		outcomes = append(outcomes, outcome{name: name, op: OpStartup})
		return nil
	})
	r.report(ctx, outcomes)

	if err != nil && errors.Is(err, registry.ErrRegistryPoisoned) {
		return started, fmt.Errorf("startup: %w", err)
	}
	return started, err
}

// stopSubsystems stops exactly the started subsystems in reverse start
// order and never stops on a failing Shutdown. Registrations and enable
// flag changes made after startup do not affect it.
func (r *Runner) stopSubsystems(ctx context.Context, started []registry.Handle) error {
	logger := r.state.logger
	base := context.WithoutCancel(ctx)

	var errs error
	var outcomes []outcome
	err := r.state.registry.UnwindSweep(started, func(name string, subsystem registry.Subsystem) error {
		stopCtx, cancel := context.WithTimeout(base, r.stopTimeout)
		defer cancel()

		logger.Info("Stopping subsystem", "subsystem", name)
		if err := subsystem.Shutdown(stopCtx); err != nil {
			logger.Error("Error stopping subsystem", "subsystem", name, "error", err)
			errs = multierr.Append(errs, &SubsystemError{Name: name, Op: OpShutdown, Err: err})
			outcomes = append(outcomes, outcome{name: name, op: OpShutdown, err: err})
			return nil
		}
		outcomes = append(outcomes, outcome{name: name, op: OpShutdown})
		return nil
	})
	r.report(ctx, outcomes)

	if err != nil {
		return multierr.Append(errs, fmt.Errorf("shutdown: %w", err))
	}
	return errs
}

// wait races the interrupt source against the shutdown signal. An interrupt,
// or cancellation of ctx, triggers the signal so every other waiter wakes.
func (r *Runner) wait(ctx context.Context) {
	logger := r.state.logger
	sig := r.state.shutdown

	rx := sig.Subscribe()
	defer rx.Close()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupts := make(chan error, 1)
	go func() {
		interrupts <- r.interrupt(listenCtx)
	}()

	select {
	case <-rx.Done():
		logger.Info("Shutdown signal received")
		return
	case err := <-interrupts:
		if err == nil || ctx.Err() != nil {
			logger.Info("Interrupt received, shutting down")
			r.trigger(ctx, "interrupt")
			return
		}
		logger.Warn("Interrupt listener failed, waiting for shutdown signal",
			"error", fmt.Errorf("%w: %w", ErrInterruptListener, err))
	}

	select {
	case <-rx.Done():
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down", "error", ctx.Err())
		r.trigger(ctx, "context")
	}
}

func (r *Runner) trigger(ctx context.Context, cause string) {
	r.state.shutdown.Trigger()
	r.state.emitEvent(ctx, EventTypeShutdownTriggered, map[string]any{"cause": cause})
}

func (r *Runner) setPhase(p Phase) {
	prev := Phase(r.phase.Swap(int32(p)))
	r.state.metrics.setPhase(p)
	r.state.logger.Debug("Runner phase changed", "from", prev.String(), "to", p.String())
}

func (r *Runner) recordShutdownErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdownErr = multierr.Append(r.shutdownErr, err)
}

package gogine

import (
	"errors"
	"fmt"
)

// Engine errors
var (
	// Initialization errors
	ErrConfigNil   = errors.New("config is nil")
	ErrStateNil    = errors.New("application state is nil")
	ErrObserverNil = errors.New("observer is nil")

	// Lifecycle errors
	ErrAlreadyRunning    = errors.New("runner has already been run")
	ErrSubsystemStartup  = errors.New("subsystem startup failed")
	ErrSubsystemShutdown = errors.New("subsystem shutdown failed")

	// Interrupt errors
	ErrInterruptListener = errors.New("interrupt listener failed")
)

// Lifecycle operations reported in SubsystemError.Op
const (
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// SubsystemError reports a failed lifecycle call on a named subsystem
type SubsystemError struct {
	Name string
	Op   string
	Err  error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("subsystem %s %s: %v", e.Name, e.Op, e.Err)
}

func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// Is matches ErrSubsystemStartup or ErrSubsystemShutdown according to Op.
func (e *SubsystemError) Is(target error) bool {
	switch target {
	case ErrSubsystemStartup:
		return e.Op == OpStartup
	case ErrSubsystemShutdown:
		return e.Op == OpShutdown
	}
	return false
}

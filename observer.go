package gogine

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives lifecycle events as CloudEvents.
type Observer interface {
	// OnEvent is called synchronously for each event the observer is
	// registered for. Errors are logged and do not affect the lifecycle.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID identifies the observer. Registering a second observer
	// with the same ID replaces the first.
	ObserverID() string
}

// ObserverInfo describes a registered observer
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Lifecycle event types
const (
	EventTypeSubsystemRegistered = "com.gogine.subsystem.registered"
	EventTypeSubsystemStarted    = "com.gogine.subsystem.started"
	EventTypeSubsystemStopped    = "com.gogine.subsystem.stopped"
	EventTypeSubsystemFailed     = "com.gogine.subsystem.failed"

	EventTypeRunnerStarted  = "com.gogine.runner.started"
	EventTypeRunnerStopping = "com.gogine.runner.stopping"
	EventTypeRunnerStopped  = "com.gogine.runner.stopped"
	EventTypeRunnerFailed   = "com.gogine.runner.failed"

	EventTypeShutdownTriggered = "com.gogine.shutdown.triggered"
)

// EventSource is the CloudEvents source of every lifecycle event
const EventSource = "gogine/lifecycle"

// FunctionalObserver adapts a function to the Observer interface
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer backed by handler
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

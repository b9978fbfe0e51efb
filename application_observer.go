package gogine

import (
	"context"
	"sort"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool // empty means every event
	registeredAt time.Time
}

// RegisterObserver subscribes observer to the given event types, or to all
// events when none are given.
func (s *State) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	s.observerMutex.Lock()
	defer s.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	s.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	s.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes observer. Unknown observers are ignored.
func (s *State) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	s.observerMutex.Lock()
	defer s.observerMutex.Unlock()

	if _, exists := s.observers[observer.ObserverID()]; exists {
		delete(s.observers, observer.ObserverID())
		s.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers delivers event to every interested observer in ID order.
// Observer errors and panics are logged and swallowed.
func (s *State) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		s.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	for _, registration := range s.interested(event.Type()) {
		s.deliver(ctx, registration, event)
	}
	return nil
}

// GetObservers lists the registered observers sorted by ID
func (s *State) GetObservers() []ObserverInfo {
	s.observerMutex.RLock()
	defer s.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(s.observers))
	for _, registration := range s.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		sort.Strings(eventTypes)

		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].ID < info[j].ID })
	return info
}

// interested snapshots the registrations for eventType so delivery runs
// without holding the observer lock.
func (s *State) interested(eventType string) []*observerRegistration {
	s.observerMutex.RLock()
	defer s.observerMutex.RUnlock()

	out := make([]*observerRegistration, 0, len(s.observers))
	for _, registration := range s.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[eventType] {
			continue
		}
		out = append(out, registration)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].observer.ObserverID() < out[j].observer.ObserverID()
	})
	return out
}

func (s *State) deliver(ctx context.Context, registration *observerRegistration, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()

	if err := registration.observer.OnEvent(ctx, event); err != nil {
		s.logger.Error("Observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

func (s *State) emitEvent(ctx context.Context, eventType string, data map[string]any) {
	s.observerMutex.RLock()
	empty := len(s.observers) == 0
	s.observerMutex.RUnlock()
	if empty {
		return
	}

	var payload any
	if data != nil {
		payload = data
	}
	event, err := NewCloudEvent(eventType, EventSource, payload, map[string]any{
		"environment": s.config.Environment,
	})
	if err != nil {
		s.logger.Error("Failed to encode event data", "event", eventType, "error", err)
	}
	if err := s.NotifyObservers(ctx, event); err != nil {
		s.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

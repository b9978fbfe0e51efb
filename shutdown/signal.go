// Package shutdown provides an edge-triggered, multi-subscriber broadcast
// used to wake every task waiting for process termination.
//
// A Signal is shared by pointer. Each interested goroutine calls Subscribe
// and waits on its own Receiver. Trigger notifies every receiver that is live
// at that moment; receivers created afterwards start unfired, so a firing is
// never replayed to late subscribers.
package shutdown

import (
	"context"
	"sync"
)

// Signal is the broadcaster side of the shutdown notification.
type Signal struct {
	mu        sync.Mutex
	receivers map[*Receiver]struct{}
	closed    bool
}

// New creates an unfired signal with zero subscribers.
func New() *Signal {
	return &Signal{
		receivers: make(map[*Receiver]struct{}),
	}
}

// Subscribe returns a receiver bound to this signal.
// The receiver observes triggers that happen after this call only.
// Callers must Close the receiver once they no longer wait on it.
func (s *Signal) Subscribe() *Receiver {
	r := &Receiver{
		signal: s,
		fired:  make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// A closed broadcaster reads as "shutdown has occurred".
		r.fire()
		return r
	}
	s.receivers[r] = struct{}{}
	return r
}

// Trigger fires the signal for every live receiver. It never blocks on
// receivers and is safe to call any number of times from any goroutine.
func (s *Signal) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for r := range s.receivers {
		r.fire()
	}
}

// Close fires every live receiver and makes later subscriptions start fired.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for r := range s.receivers {
		r.fire()
	}
}

// SubscriberCount returns the number of live receivers.
func (s *Signal) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.receivers)
}

func (s *Signal) unsubscribe(r *Receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receivers, r)
}

// Receiver is a single subscription to a Signal.
type Receiver struct {
	signal *Signal
	fired  chan struct{}

	once      sync.Once // guards close(fired)
	closeOnce sync.Once
}

func (r *Receiver) fire() {
	r.once.Do(func() { close(r.fired) })
}

// Recv blocks until the signal has fired for this receiver and returns nil.
// If ctx ends first Recv returns ctx.Err(); the firing is not consumed and a
// later call still observes it. After the first firing every call returns
// immediately.
func (r *Receiver) Recv(ctx context.Context) error {
	select {
	case <-r.fired:
		return nil
	default:
	}

	select {
	case <-r.fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the signal fired for this receiver.
func (r *Receiver) Done() <-chan struct{} {
	return r.fired
}

// Fired reports whether this receiver has observed a firing.
func (r *Receiver) Fired() bool {
	select {
	case <-r.fired:
		return true
	default:
		return false
	}
}

// Close releases the subscription. It is idempotent.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		r.signal.unsubscribe(r)
	})
}

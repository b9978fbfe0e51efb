// Package registry provides the ordered, lock-guarded subsystem collection
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Static errors for registry package
var (
	ErrRegistryPoisoned  = errors.New("subsystem registry is poisoned")
	ErrNilSubsystem      = errors.New("subsystem is nil")
	ErrSubsystemNotFound = errors.New("subsystem not found")
	ErrRegistryBusy      = errors.New("subsystem registry is busy")
)

// entry is one registered subsystem. It is owned by the Registry.
type entry struct {
	name      string
	enabled   bool
	subsystem Subsystem
}

// Registry is an ordered sequence of named subsystems. Insertion order
// defines startup order; shutdown uses the reverse.
//
// All access is serialized by a single mutex. A lifecycle call that panics
// while the mutex is held poisons the registry: that call and every later
// access report ErrRegistryPoisoned instead of exposing a partial view.
type Registry struct {
	mu       sync.Mutex
	entries  []*entry
	poisoned any

	isPoisoned atomic.Bool
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: make([]*entry, 0),
	}
}

// Register appends a subsystem at the end of the sequence, enabled.
// Names are unique by convention only; duplicates are accepted.
func (r *Registry) Register(name string, subsystem Subsystem) error {
	if subsystem == nil {
		return fmt.Errorf("%w: %s", ErrNilSubsystem, name)
	}

	return r.locked(func() error {
		r.entries = append(r.entries, &entry{
			name:      name,
			enabled:   true,
			subsystem: subsystem,
		})
		return nil
	})
}

// Len returns the number of entries, including disabled ones. A poisoned
// registry reports the count it held when it was poisoned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SetEnabled flips the enabled flag of every entry registered under name.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	return r.locked(func() error {
		found := false
		for _, e := range r.entries {
			if e.name == name {
				e.enabled = enabled
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrSubsystemNotFound, name)
		}
		return nil
	})
}

// Entries returns a snapshot of the registry in registration order.
func (r *Registry) Entries() ([]EntryInfo, error) {
	var infos []EntryInfo
	err := r.locked(func() error {
		infos = r.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// TryEntries is Entries without waiting: it returns ErrRegistryBusy when a
// sweep or another caller holds the lock.
func (r *Registry) TryEntries() ([]EntryInfo, error) {
	if !r.mu.TryLock() {
		return nil, ErrRegistryBusy
	}
	defer r.mu.Unlock()

	if r.poisoned != nil {
		return nil, fmt.Errorf("%w: previous holder panicked: %v", ErrRegistryPoisoned, r.poisoned)
	}
	return r.snapshot(), nil
}

func (r *Registry) snapshot() []EntryInfo {
	infos := make([]EntryInfo, 0, len(r.entries))
	for i, e := range r.entries {
		infos = append(infos, EntryInfo{Name: e.name, Enabled: e.enabled, Index: i})
	}
	return infos
}

// Poisoned reports whether a previous holder of the lock panicked. It
// never waits for the lock.
func (r *Registry) Poisoned() bool {
	return r.isPoisoned.Load()
}

// Sweep visits every enabled entry in the given order while holding the
// registry lock. Disabled entries are skipped without changing positions.
// The first error returned by visit stops the sweep and is returned as is.
func (r *Registry) Sweep(order Order, visit VisitFunc) error {
	return r.locked(func() error {
		n := len(r.entries)
		for i := 0; i < n; i++ {
			idx := i
			if order == Reverse {
				idx = n - 1 - i
			}
			e := r.entries[idx]
			if !e.enabled {
				continue
			}
			if err := visit(e.name, e.subsystem); err != nil {
				return err
			}
		}
		return nil
	})
}

// Handle identifies one entry across sweeps. It stays valid for the life of
// the registry.
type Handle struct {
	entry *entry
}

// Name returns the name the entry was registered under
func (h Handle) Name() string {
	if h.entry == nil {
		return ""
	}
	return h.entry.name
}

// StartSweep visits every enabled entry in registration order, like
// Sweep(Forward, visit), and returns handles for the entries whose visit
// succeeded, in visiting order. The returned handles are valid even when
// the sweep stopped on an error.
func (r *Registry) StartSweep(visit VisitFunc) ([]Handle, error) {
	var started []Handle
	err := r.locked(func() error {
		for _, e := range r.entries {
			if !e.enabled {
				continue
			}
			if err := visit(e.name, e.subsystem); err != nil {
				return err
			}
			started = append(started, Handle{entry: e})
		}
		return nil
	})
	return started, err
}

// UnwindSweep visits the given handles in reverse order while holding the
// registry lock. The current enabled flags are ignored: exactly the given
// entries are visited. The first error returned by visit stops the sweep.
func (r *Registry) UnwindSweep(started []Handle, visit VisitFunc) error {
	return r.locked(func() error {
		for i := len(started) - 1; i >= 0; i-- {
			e := started[i].entry
			if e == nil {
				continue
			}
			if err := visit(e.name, e.subsystem); err != nil {
				return err
			}
		}
		return nil
	})
}

// locked runs fn with the mutex held and converts a panic inside fn into
// registry poisoning.
func (r *Registry) locked(fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned != nil {
		return fmt.Errorf("%w: previous holder panicked: %v", ErrRegistryPoisoned, r.poisoned)
	}

	defer func() {
		if p := recover(); p != nil {
			r.poisoned = p
			r.isPoisoned.Store(true)
			err = fmt.Errorf("%w: %v", ErrRegistryPoisoned, p)
		}
	}()

	return fn()
}

// Package registry provides the backend registry for thread spawning.
//
// Several thread backends (OS threads, a runtime-managed parallel region, a
// synchronous fallback) implement the same {spawn, join} contract. Which
// backends exist in a binary is decided by build tags; each compiled-in
// backend registers itself via an init() function, and the thread initializer
// selects exactly one of them once. Dispatch never switches backends.
package registry

import (
	"errors"
	"sync"
)

// Errors returned by backends.
var (
	ErrUnknownHandle = errors.New("registry: unknown or already joined handle")
	ErrNilEntry      = errors.New("registry: nil entry function")
)

// Handle identifies one spawned unit of execution. It is opaque to callers
// and only meaningful to the backend that returned it.
type Handle any

// Backend is the {spawn, join} capability every thread variant provides.
//
// After Join(h) returns without error, the entry function passed to the
// Spawn call that produced h has fully completed.
type Backend interface {
	// Name is the registry name of the backend.
	Name() string

	// Threaded reports whether Spawn runs entries concurrently with the caller.
	Threaded() bool

	// Spawn starts entry and returns a handle to join it.
	Spawn(entry func()) (Handle, error)

	// Join blocks until the entry behind h has completed.
	Join(h Handle) error
}

// Region is implemented by backends that execute a whole loop of n blocks as
// one runtime-managed parallel construct. Region returns once body has
// completed for every i in [0, n).
type Region interface {
	Region(n int, body func(i int))
}

// Attributes carry the process-wide thread creation settings a backend is
// constructed with.
type Attributes struct {
	// Joinable requires every handle to be joinable.
	Joinable bool

	// SystemScope requires spawned work to be scheduled on more than one OS thread.
	SystemScope bool

	// MaxProcs is the GOMAXPROCS value in effect.
	MaxProcs int
}

// Entry describes a registered backend variant.
type Entry struct {
	// Name is a human-readable identifier (e.g., "osthread", "serial").
	Name string

	// Priority determines selection order when no backend is named.
	// Higher priority backends are preferred. Suggested priorities:
	//   - serial: 0
	//   - region: 10
	//   - osthread: 20
	Priority int

	// Threaded reports whether the backend runs entries concurrently.
	Threaded bool

	// New constructs the backend for the given attributes.
	New func(attr Attributes) (Backend, error)
}

// Registry manages the registration and lookup of backend variants.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	sorted  bool // true if entries are sorted by priority (descending)
}

// Global is the registry populated by the backend packages linked into the binary.
var Global = &Registry{}

// Register adds a backend variant to the registry.
//
// This function is typically called from init() functions in backend
// packages. It is safe to call concurrently, but all registrations should
// complete before the first call to Lookup().
func (r *Registry) Register(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	r.sorted = false
}

// Lookup returns the entry registered under name, or the highest-priority
// entry when name is empty. Returns nil if nothing matches.
func (r *Registry) Lookup(name string) *Entry {
	r.mu.Lock()
	if !r.sorted {
		r.sortByPriority()
		r.sorted = true
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil
	}
	if name == "" {
		e := r.entries[0]
		return &e
	}
	for i := range r.entries {
		if r.entries[i].Name == name {
			e := r.entries[i]
			return &e
		}
	}
	return nil
}

// sortByPriority sorts entries by priority in descending order.
// Must be called with r.mu held (write lock).
func (r *Registry) sortByPriority() {
	// Insertion sort keeps equal priorities in registration order.
	for i := 1; i < len(r.entries); i++ {
		key := r.entries[i]
		j := i - 1
		for j >= 0 && r.entries[j].Priority < key.Priority {
			r.entries[j+1] = r.entries[j]
			j--
		}
		r.entries[j+1] = key
	}
}

// ListEntries returns a copy of all registered entries.
// This function is primarily intended for testing and debugging.
func (r *Registry) ListEntries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Names returns the registered backend names, highest priority first.
func (r *Registry) Names() []string {
	r.mu.Lock()
	if !r.sorted {
		r.sortByPriority()
		r.sorted = true
	}
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	r.mu.Unlock()
	return names
}

// Reset clears all registered entries.
// This function is intended for testing purposes only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.sorted = false
}

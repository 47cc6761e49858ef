// Package osthread implements the thread backend that gives every spawned
// entry its own OS thread.
//
// Each Spawn starts a goroutine that locks itself to its OS thread for the
// whole lifetime of the entry, so the entry is preemptively scheduled by the
// kernel like a native thread rather than multiplexed with other goroutines
// on a shared thread.
package osthread

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/cwbudde/algo-threads/internal/thread/registry"
)

// Name is the registry name of this backend.
const Name = "osthread"

// ErrNotJoinable is returned by New when the attributes do not request
// joinable threads. Detached threads cannot take part in a fork-join barrier.
var ErrNotJoinable = errors.New("osthread: threads must be joinable")

// Backend spawns one OS-thread-bound goroutine per entry.
type Backend struct {
	attr registry.Attributes
}

type handle struct {
	done   chan struct{}
	joined atomic.Bool
}

// New returns a backend configured with attr.
func New(attr registry.Attributes) (*Backend, error) {
	if !attr.Joinable {
		return nil, ErrNotJoinable
	}
	return &Backend{attr: attr}, nil
}

// Name returns "osthread".
func (b *Backend) Name() string { return Name }

// Threaded reports true.
func (b *Backend) Threaded() bool { return true }

// Spawn starts entry on a goroutine locked to its own OS thread.
func (b *Backend) Spawn(entry func()) (registry.Handle, error) {
	if entry == nil {
		return nil, registry.ErrNilEntry
	}

	h := &handle{done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(h.done)
		entry()
	}()
	return h, nil
}

// Join blocks until the entry behind h has returned. Each handle can be
// joined exactly once.
func (b *Backend) Join(h registry.Handle) error {
	hd, ok := h.(*handle)
	if !ok || hd == nil || hd.joined.Swap(true) {
		return registry.ErrUnknownHandle
	}
	<-hd.done
	return nil
}

func init() {
	registry.Global.Register(registry.Entry{
		Name:     Name,
		Priority: 20,
		Threaded: true,
		New: func(attr registry.Attributes) (registry.Backend, error) {
			b, err := New(attr)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	})
}

// Package serial implements the thread backend used when no threading is
// available: Spawn runs the entry immediately in the caller and Join does
// nothing.
package serial

import "github.com/cwbudde/algo-threads/internal/thread/registry"

// Name is the registry name of this backend.
const Name = "serial"

// Backend executes entries synchronously.
type Backend struct{}

type token struct{}

// New returns a serial backend.
func New(registry.Attributes) (*Backend, error) {
	return &Backend{}, nil
}

// Name returns "serial".
func (b *Backend) Name() string { return Name }

// Threaded reports false.
func (b *Backend) Threaded() bool { return false }

// Spawn runs entry before returning.
func (b *Backend) Spawn(entry func()) (registry.Handle, error) {
	if entry == nil {
		return nil, registry.ErrNilEntry
	}
	entry()
	return token{}, nil
}

// Join is a no-op.
func (b *Backend) Join(registry.Handle) error { return nil }

func init() {
	registry.Global.Register(registry.Entry{
		Name:     Name,
		Priority: 0,
		Threaded: false,
		New: func(attr registry.Attributes) (registry.Backend, error) {
			return New(attr)
		},
	})
}

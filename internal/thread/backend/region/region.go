// Package region implements the thread backend that hands a whole loop to
// the Go scheduler as one parallel region.
//
// The dispatcher detects the [registry.Region] extension and runs all blocks
// through Region, so no per-block handles exist. Spawn and Join are kept for
// the common contract and collapse to an in-place call and a no-op.
package region

import (
	"sync"

	"github.com/cwbudde/algo-threads/internal/thread/registry"
)

// Name is the registry name of this backend.
const Name = "region"

// Backend runs loops as runtime-managed parallel regions.
type Backend struct{}

type token struct{}

// New returns a region backend. Attributes are accepted for symmetry with
// the other backends; the Go runtime owns thread creation here.
func New(registry.Attributes) (*Backend, error) {
	return &Backend{}, nil
}

// Name returns "region".
func (b *Backend) Name() string { return Name }

// Threaded reports true.
func (b *Backend) Threaded() bool { return true }

// Spawn runs entry in place.
func (b *Backend) Spawn(entry func()) (registry.Handle, error) {
	if entry == nil {
		return nil, registry.ErrNilEntry
	}
	entry()
	return token{}, nil
}

// Join is a no-op.
func (b *Backend) Join(registry.Handle) error { return nil }

// Region runs body(i) for every i in [0, n) concurrently and returns when
// all of them have returned. The caller executes the last block itself.
func (b *Backend) Region(n int, body func(i int)) {
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < n-1; i++ {
		wg.Go(func() { body(i) })
	}
	body(n - 1)
	wg.Wait()
}

func init() {
	registry.Global.Register(registry.Entry{
		Name:     Name,
		Priority: 10,
		Threaded: true,
		New: func(attr registry.Attributes) (registry.Backend, error) {
			return New(attr)
		},
	})
}

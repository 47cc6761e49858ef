// Package fft runs batches of independent complex FFTs in parallel.
//
// A batch holds howmany transforms of length n stored back to back. The
// transforms are split into contiguous groups with threads.SpawnLoop; every
// worker owns its own FFT plan, selected by the worker's ThrNum, so plans and
// their scratch memory are never shared between goroutines.
//
// The package registers a threads.OnInit hook: after threads.Init installs a
// threaded backend, new batches default to as many workers as the process can
// run in parallel. Without threads, including after a later Init that falls
// back to the serial backend, batches run on one worker.
package fft

import (
	"errors"
	"fmt"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-threads/threads"
	"github.com/cwbudde/algo-threads/threads/partition"
)

// Errors returned by batch construction and execution.
var (
	ErrInvalidSize    = errors.New("fft: invalid transform size")
	ErrLengthMismatch = errors.New("fft: buffer length mismatch")
)

var (
	threaded       atomic.Bool
	defaultWorkers atomic.Int32
)

func init() {
	defaultWorkers.Store(1)
	threads.OnInit(func(c threads.Capabilities) {
		threaded.Store(c.Threaded)
		defaultWorkers.Store(int32(max(c.MaxWorkers, 1)))
	})
}

// Threaded reports whether the threaded batch variant has been enabled by
// threads.Init.
func Threaded() bool { return threaded.Load() }

// DefaultWorkers returns the worker count new batches use when none is given.
func DefaultWorkers() int { return int(defaultWorkers.Load()) }

// Batch executes howmany complex FFTs of length n.
type Batch struct {
	n       int
	howmany int
	workers int

	// One plan per worker, indexed by ThrNum.
	plans []*algofft.Plan[complex128]
}

// Option configures a Batch.
type Option func(*Batch)

// WithWorkers sets the requested number of workers.
func WithWorkers(k int) Option {
	return func(b *Batch) {
		if k > 0 {
			b.workers = k
		}
	}
}

// NewBatch creates a batch of howmany transforms of length n.
func NewBatch(n, howmany int, opts ...Option) (*Batch, error) {
	if n <= 0 || howmany <= 0 {
		return nil, fmt.Errorf("%w: n=%d howmany=%d", ErrInvalidSize, n, howmany)
	}

	b := &Batch{
		n:       n,
		howmany: howmany,
		workers: DefaultWorkers(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	// Never more plans than blocks the dispatcher can produce.
	_, b.workers = partition.Plan(howmany, b.workers)

	b.plans = make([]*algofft.Plan[complex128], b.workers)
	for i := range b.plans {
		plan, err := algofft.NewPlan64(n)
		if err != nil {
			return nil, fmt.Errorf("fft: failed to create FFT plan: %w", err)
		}
		b.plans[i] = plan
	}

	return b, nil
}

// Len returns the length of one transform.
func (b *Batch) Len() int { return b.n }

// Howmany returns the number of transforms in the batch.
func (b *Batch) Howmany() int { return b.howmany }

// Workers returns the number of workers the batch is split over.
func (b *Batch) Workers() int { return b.workers }

// Forward computes the forward FFT of every transform in src into dst.
// Both slices must have length n*howmany; dst may alias src.
func (b *Batch) Forward(dst, src []complex128) error {
	return b.execute(dst, src, false)
}

// Inverse computes the normalized inverse FFT of every transform in src
// into dst. Both slices must have length n*howmany; dst may alias src.
func (b *Batch) Inverse(dst, src []complex128) error {
	return b.execute(dst, src, true)
}

func (b *Batch) execute(dst, src []complex128, inverse bool) error {
	want := b.n * b.howmany
	if len(src) != want || len(dst) != want {
		return fmt.Errorf("%w: expected %d, got src=%d dst=%d", ErrLengthMismatch, want, len(src), len(dst))
	}

	errs := make([]error, len(b.plans))
	threads.SpawnLoop(b.howmany, b.workers, func(r *threads.Range) {
		plan := b.plans[r.ThrNum]
		for t := r.Min; t < r.Max; t++ {
			lo, hi := t*b.n, (t+1)*b.n

			var err error
			if inverse {
				err = plan.Inverse(dst[lo:hi], src[lo:hi])
			} else {
				err = plan.Forward(dst[lo:hi], src[lo:hi])
			}
			if err != nil {
				errs[r.ThrNum] = fmt.Errorf("fft: transform %d: %w", t, err)
				return
			}
		}
	}, nil)

	return errors.Join(errs...)
}

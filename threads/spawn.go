package threads

import (
	"fmt"

	xcpu "golang.org/x/sys/cpu"

	"github.com/cwbudde/algo-threads/internal/thread/registry"
	"github.com/cwbudde/algo-threads/threads/partition"
)

// Range is one contiguous block of a dispatched loop.
type Range struct {
	// Min and Max bound the half-open index interval [Min, Max).
	Min, Max int

	// ThrNum is the block index, from 0 to the number of blocks - 1.
	ThrNum int

	// Data is the value passed to SpawnLoop, shared by all blocks.
	Data any
}

// WorkFunc processes the indices of one Range.
type WorkFunc func(r *Range)

// slot is the per-block state of one dispatch. Slots are written
// concurrently by different workers and padded apart.
type slot struct {
	r        Range
	panicked any
	_        xcpu.CacheLinePad
}

// SpawnLoop runs fn over [0, loopmax) split into at most nthr blocks and
// returns when every block has completed.
//
// Blocks are assigned in ascending ThrNum order. With more than one block,
// blocks 0..n-2 run on workers started through the active backend and block
// n-1 runs on the calling goroutine, so n-1 workers are spawned. With one
// block, before Init, or when threads are unsupported, fn is called once
// with [0, loopmax) and ThrNum 0.
//
// SpawnLoop panics with ErrContractViolation if loopmax <= 0, nthr <= 0 or
// fn is nil, and with ErrNestedDispatch when a work function issues a
// dispatch that would start workers. A nested dispatch that resolves to a
// single block runs inline. A panic inside fn is re-raised on the caller
// after all blocks have finished. A spawn or join failure is fatal to the
// process.
func SpawnLoop(loopmax, nthr int, fn WorkFunc, data any) {
	if loopmax <= 0 || nthr <= 0 || fn == nil {
		panic(fmt.Errorf("%w: loopmax=%d nthr=%d fn=%t", ErrContractViolation, loopmax, nthr, fn != nil))
	}

	// Without threads nothing can nest into a spawn, so skip the guard.
	st := current.Load()
	if st == nil || !st.backend.Threaded() {
		r := Range{Min: 0, Max: loopmax, ThrNum: 0, Data: data}
		fn(&r)
		return
	}

	blockSize, workers := partition.Plan(loopmax, nthr)
	if workers <= 1 {
		runSingle(loopmax, fn, data)
		return
	}

	if inWorker() {
		panic(fmt.Errorf("%w: SpawnLoop called from a work function", ErrNestedDispatch))
	}

	slots := make([]slot, workers)
	for i := range slots {
		lo, hi := partition.Bounds(i, blockSize, loopmax)
		slots[i].r = Range{Min: lo, Max: hi, ThrNum: i, Data: data}
	}

	if rb, ok := st.backend.(registry.Region); ok {
		rb.Region(workers, func(i int) { slots[i].run(fn) })
	} else {
		spawnAndJoin(st, slots, fn)
	}

	for i := range slots {
		if p := slots[i].panicked; p != nil {
			panic(p)
		}
	}
}

// runSingle runs the whole loop on the caller, marked as a work function so
// that a dispatch issued from fn is still caught.
func runSingle(loopmax int, fn WorkFunc, data any) {
	r := Range{Min: 0, Max: loopmax, ThrNum: 0, Data: data}
	leave := enterWorker()
	defer leave()
	fn(&r)
}

// spawnAndJoin starts one worker per slot except the last, runs the last
// slot on the caller, then joins every worker.
func spawnAndJoin(st *state, slots []slot, fn WorkFunc) {
	last := len(slots) - 1
	handles := make([]registry.Handle, last)

	for i := range handles {
		s := &slots[i]
		h, err := st.backend.Spawn(func() { s.run(fn) })
		if err != nil {
			fatal(st, fmt.Errorf("%w: spawn block %d of %d on %s: %w",
				ErrFatalConcurrency, i, len(slots), st.backend.Name(), err))
		}
		handles[i] = h
	}

	slots[last].run(fn)

	for i, h := range handles {
		if err := st.backend.Join(h); err != nil {
			fatal(st, fmt.Errorf("%w: join block %d of %d on %s: %w",
				ErrFatalConcurrency, i, len(slots), st.backend.Name(), err))
		}
	}
}

func (s *slot) run(fn WorkFunc) {
	leave := enterWorker()
	defer func() {
		leave()
		s.panicked = wrapPanic(recover())
	}()
	fn(&s.r)
}

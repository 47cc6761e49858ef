// Package threads distributes a one-dimensional loop over worker threads.
//
// [SpawnLoop] splits [0, loopmax) into at most nthr contiguous blocks, runs
// every block but the last on a spawned worker, runs the last block on the
// calling goroutine, and returns once every block has finished:
//
//	threads.SpawnLoop(len(rows), 8, func(r *threads.Range) {
//		for i := r.Min; i < r.Max; i++ {
//			process(rows[i])
//		}
//	}, nil)
//
// # Initialization
//
// [Init] must be called once, before the first dispatch and never
// concurrently with dispatch. It fixes the process-wide thread attributes
// (joinable workers scheduled across all usable CPUs) and selects the thread
// backend. Until Init has succeeded, and whenever Init returns
// [ErrThreadsUnsupported], SpawnLoop runs the whole loop synchronously as a
// single block.
//
// # Backends
//
// Exactly one backend is active per process. The set compiled in is chosen
// with build tags:
//
//	(default)              osthread, serial
//	-tags threads_region   region, serial
//	-tags threads_serial   serial
//
// Init picks the highest-priority backend unless one is named with
// [WithBackend] or the ALGO_THREADS_BACKEND environment variable.
//
// # Work functions
//
// A [WorkFunc] receives one [Range] and processes indices [Min, Max). Range
// data is shared by all workers without synchronization: callers partition
// their state by range or synchronize inside the work function. Work
// functions must not call SpawnLoop; nested dispatch panics with
// [ErrNestedDispatch] where it can be detected.
//
// Detection works on Linux by recording the OS thread of every running work
// function. With a threaded backend each dispatch therefore pins the calling
// goroutine to its thread for the duration of its block and issues one
// gettid call per block, plus one for the check itself when workers are
// started. Before Init and with the serial backend no such cost is paid.
package threads

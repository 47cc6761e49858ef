package threads

import (
	"runtime"
	"sync"
)

// workerThreads holds the OS thread ids currently executing a work function.
// A work function always runs with its goroutine locked to its thread, so
// while an id is present no other goroutine can run on that thread.
var workerThreads sync.Map

// enterWorker marks the calling thread as running a work function and
// returns the function that clears the mark. Where thread ids are not
// available it does nothing.
func enterWorker() (leave func()) {
	runtime.LockOSThread()
	tid := threadID()
	if tid <= 0 {
		runtime.UnlockOSThread()
		return func() {}
	}

	workerThreads.Store(tid, struct{}{})
	return func() {
		workerThreads.Delete(tid)
		runtime.UnlockOSThread()
	}
}

// inWorker reports whether the calling goroutine is inside a work function.
func inWorker() bool {
	// Locked for the check so no other goroutine can take over and mark
	// this thread in between.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := threadID()
	if tid <= 0 {
		return false
	}
	_, ok := workerThreads.Load(tid)
	return ok
}

package threads

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Errors returned or raised by this package.
var (
	// ErrConfiguration is matched by every *ConfigError returned from Init.
	ErrConfiguration = errors.New("threads: configuration error")

	// ErrThreadsUnsupported is returned by Init when only the synchronous
	// backend is available. SpawnLoop remains usable.
	ErrThreadsUnsupported = errors.New("threads: threads unsupported")

	// ErrContractViolation is wrapped by SpawnLoop panics on invalid arguments.
	ErrContractViolation = errors.New("threads: contract violation")

	// ErrNestedDispatch is wrapped by the panic of a SpawnLoop issued from
	// inside a running work function.
	ErrNestedDispatch = errors.New("threads: nested dispatch is not supported")

	// ErrFatalConcurrency wraps spawn and join failures.
	ErrFatalConcurrency = errors.New("threads: fatal concurrency error")

	// ErrUnknownBackend is the cause of a ConfigError naming an unregistered backend.
	ErrUnknownBackend = errors.New("threads: unknown backend")

	// ErrInvalidMaxProcs is the cause of a ConfigError for a negative MaxProcs.
	ErrInvalidMaxProcs = errors.New("threads: invalid max procs")
)

// ConfigError reports that Init could not establish the thread attributes or
// construct the backend.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("threads: %s: %v", e.Op, e.Err)
}

// Unwrap returns ErrConfiguration and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// wrapPanic adds the worker's stack trace to a recovered panic so that the
// re-panic on the calling goroutine still shows where it started.
func wrapPanic(p any) any {
	if p == nil {
		return nil
	}
	if err, ok := p.(error); ok {
		return fmt.Errorf("%w\n%s\nrethrown at", err, debug.Stack())
	}
	return fmt.Sprintf("%v\n%s\nrethrown at", p, debug.Stack())
}

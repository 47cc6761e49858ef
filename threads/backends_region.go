//go:build threads_region && !threads_serial

package threads

// This file links the runtime-managed parallel region backend in place of
// the OS-thread backend.

import (
	// Parallel region backend
	_ "github.com/cwbudde/algo-threads/internal/thread/backend/region"

	// Synchronous fallback
	_ "github.com/cwbudde/algo-threads/internal/thread/backend/serial"
)

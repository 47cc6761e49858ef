//go:build threads_serial

package threads

// This file links only the synchronous backend, for builds without threads.

import (
	// Synchronous fallback
	_ "github.com/cwbudde/algo-threads/internal/thread/backend/serial"
)

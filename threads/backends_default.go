//go:build !threads_region && !threads_serial

package threads

// This file links the default backends. Their init() functions register
// them with the backend registry.

import (
	// OS-thread backend
	_ "github.com/cwbudde/algo-threads/internal/thread/backend/osthread"

	// Synchronous fallback
	_ "github.com/cwbudde/algo-threads/internal/thread/backend/serial"
)

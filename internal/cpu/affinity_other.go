//go:build !linux

package cpu

// usableCPUs is the fallback for platforms without an affinity query.
// Returns 0 so that detection falls back to runtime.NumCPU.
func usableCPUs() int {
	return 0
}

//go:build linux

package cpu

import "golang.org/x/sys/unix"

// usableCPUs counts the CPUs in the calling thread's affinity mask.
//
// Containers and taskset commonly restrict the mask below runtime.NumCPU on
// older runtimes, so the mask is the better bound for parallel width.
// Returns 0 if the mask cannot be read.
func usableCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0
	}
	return set.Count()
}

// Package cpu provides processor topology detection for worker-count selection.
//
// The topology describes how many CPUs the process may actually run on, how
// many physical cores back them, and the runtime's current GOMAXPROCS. The
// thread initializer uses it to decide whether goroutines can run in parallel
// at all, and consumers use it to pick a default worker count.
//
// Detection is performed lazily on the first call to DetectTopology() and the
// result is cached for subsequent calls using sync.Once for thread-safety.
package cpu

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Topology describes CPU resources relevant to parallel loop dispatch.
type Topology struct {
	// LogicalCPUs is the number of logical CPUs in the machine (runtime.NumCPU).
	LogicalCPUs int

	// UsableCPUs is the number of CPUs in the process affinity mask.
	// Equal to LogicalCPUs where the mask cannot be queried.
	UsableCPUs int

	// PhysicalCores is the number of physical cores, or 0 if unknown.
	PhysicalCores int

	// ThreadsPerCore is the SMT width, or 1 if unknown.
	ThreadsPerCore int

	// CacheLine is the L1 data cache line size in bytes.
	CacheLine int

	// MaxProcs is runtime.GOMAXPROCS(0) at detection time.
	MaxProcs int

	// Brand is the processor brand string, if reported.
	Brand string

	// Architecture is runtime.GOARCH (e.g., "amd64", "arm64").
	Architecture string
}

const defaultCacheLine = 64

var (
	// detectedTopology holds the cached topology detected on this system.
	detectedTopology Topology

	// detectOnce ensures detection runs exactly once, thread-safely.
	detectOnce sync.Once

	// detectMutex serializes access to detectOnce/detectedTopology.
	detectMutex sync.Mutex

	// forcedTopology allows overriding actual detection for testing.
	forcedTopology *Topology

	// forcedMutex protects forcedTopology from concurrent access during testing.
	forcedMutex sync.RWMutex
)

// DetectTopology returns the CPU topology of the current system.
//
// Detection is performed once on the first call and cached for subsequent calls.
// This function is thread-safe and can be called concurrently from multiple goroutines.
func DetectTopology() Topology {
	forcedMutex.RLock()
	forced := forcedTopology
	forcedMutex.RUnlock()

	if forced != nil {
		return *forced
	}

	detectMutex.Lock()
	detectOnce.Do(func() {
		detectedTopology = detectTopologyImpl()
	})
	topo := detectedTopology
	detectMutex.Unlock()

	return topo
}

// DefaultWorkers returns the number of workers that can run in parallel
// right now: min(GOMAXPROCS, UsableCPUs), never less than 1.
func DefaultWorkers() int {
	n := min(runtime.GOMAXPROCS(0), DetectTopology().UsableCPUs)
	if n < 1 {
		return 1
	}
	return n
}

// SetForcedTopology overrides topology detection with t.
// This is intended for testing purposes only.
func SetForcedTopology(t Topology) {
	forcedMutex.Lock()
	defer forcedMutex.Unlock()
	forced := t
	forcedTopology = &forced
}

// ResetDetection clears any forced topology and the detection cache.
// This is intended for testing purposes.
func ResetDetection() {
	forcedMutex.Lock()
	forcedTopology = nil
	forcedMutex.Unlock()

	detectMutex.Lock()
	detectOnce = sync.Once{}
	detectedTopology = Topology{}
	detectMutex.Unlock()
}

func detectTopologyImpl() Topology {
	t := Topology{
		LogicalCPUs:    runtime.NumCPU(),
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
		CacheLine:      cpuid.CPU.CacheLine,
		MaxProcs:       runtime.GOMAXPROCS(0),
		Brand:          cpuid.CPU.BrandName,
		Architecture:   runtime.GOARCH,
	}

	t.UsableCPUs = usableCPUs()
	if t.UsableCPUs <= 0 || t.UsableCPUs > t.LogicalCPUs {
		t.UsableCPUs = t.LogicalCPUs
	}
	if t.ThreadsPerCore < 1 {
		t.ThreadsPerCore = 1
	}
	if t.CacheLine <= 0 {
		t.CacheLine = defaultCacheLine
	}
	return t
}

package cpu

import (
	"runtime"
	"testing"
)

func TestDetectTopology(t *testing.T) {
	ResetDetection()
	defer ResetDetection()

	topo := DetectTopology()

	if topo.LogicalCPUs != runtime.NumCPU() {
		t.Errorf("LogicalCPUs = %d, want %d", topo.LogicalCPUs, runtime.NumCPU())
	}
	if topo.UsableCPUs < 1 || topo.UsableCPUs > topo.LogicalCPUs {
		t.Errorf("UsableCPUs = %d, want in [1, %d]", topo.UsableCPUs, topo.LogicalCPUs)
	}
	if topo.ThreadsPerCore < 1 {
		t.Errorf("ThreadsPerCore = %d, want >= 1", topo.ThreadsPerCore)
	}
	if topo.CacheLine <= 0 {
		t.Errorf("CacheLine = %d, want > 0", topo.CacheLine)
	}
	if topo.Architecture != runtime.GOARCH {
		t.Errorf("Architecture = %q, want %q", topo.Architecture, runtime.GOARCH)
	}

	t.Logf("topology: %+v", topo)
}

func TestDetectTopologyCached(t *testing.T) {
	ResetDetection()
	defer ResetDetection()

	a := DetectTopology()
	b := DetectTopology()
	if a != b {
		t.Fatalf("cached topology changed: %+v vs %+v", a, b)
	}
}

func TestSetForcedTopology(t *testing.T) {
	defer ResetDetection()

	SetForcedTopology(Topology{LogicalCPUs: 3, UsableCPUs: 2, CacheLine: 128})

	got := DetectTopology()
	if got.UsableCPUs != 2 || got.LogicalCPUs != 3 || got.CacheLine != 128 {
		t.Fatalf("forced topology not returned: %+v", got)
	}

	ResetDetection()
	if DetectTopology().LogicalCPUs != runtime.NumCPU() {
		t.Fatal("ResetDetection did not clear forced topology")
	}
}

func TestDefaultWorkers(t *testing.T) {
	defer ResetDetection()

	tests := []struct {
		name   string
		usable int
		want   int
	}{
		{name: "single CPU", usable: 1, want: 1},
		{name: "no CPUs reported", usable: 0, want: 1},
		{name: "bounded by GOMAXPROCS", usable: 1 << 20, want: runtime.GOMAXPROCS(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetForcedTopology(Topology{LogicalCPUs: tt.usable, UsableCPUs: tt.usable})
			if got := DefaultWorkers(); got != tt.want {
				t.Errorf("DefaultWorkers() = %d, want %d", got, tt.want)
			}
		})
	}
}

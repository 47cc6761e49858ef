package threads

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cwbudde/algo-threads/internal/cpu"
	"github.com/cwbudde/algo-threads/internal/thread/registry"
)

// defaultBackend returns the backend Init selects without a name and skips
// the test when the build links no threaded backend.
func defaultBackend(t *testing.T) string {
	t.Helper()
	e := registry.Global.Lookup("")
	if e == nil || !e.Threaded {
		t.Skip("no threaded backend in this build")
	}
	return e.Name
}

// preserve restores the dispatch state, GOMAXPROCS and topology detection
// after a test that calls Init.
func preserve(t *testing.T) {
	t.Helper()
	prev := current.Load()
	procs := runtime.GOMAXPROCS(0)
	t.Cleanup(func() {
		current.Store(prev)
		runtime.GOMAXPROCS(procs)
		cpu.ResetDetection()
	})
}

func TestInitDefault(t *testing.T) {
	preserve(t)
	want := defaultBackend(t)

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	attr, ok := CurrentAttributes()
	if !ok {
		t.Fatal("CurrentAttributes reports uninitialized after Init")
	}
	if !attr.Joinable {
		t.Error("workers are not joinable")
	}
	if attr.Backend != want {
		t.Errorf("Backend = %q, want %s", attr.Backend, want)
	}
	if attr.MaxProcs < 1 || attr.UsableCPUs < 1 {
		t.Errorf("attributes = %+v", attr)
	}

	caps := CurrentCapabilities()
	if !caps.Threaded || caps.MaxWorkers < 1 {
		t.Errorf("capabilities = %+v", caps)
	}
}

func TestInitRaisesMaxProcs(t *testing.T) {
	preserve(t)
	defaultBackend(t)

	cpu.SetForcedTopology(cpu.Topology{LogicalCPUs: 4, UsableCPUs: 4})
	runtime.GOMAXPROCS(1)

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	attr, _ := CurrentAttributes()
	if !attr.Changed || attr.MaxProcs != 4 || !attr.SystemScope {
		t.Fatalf("attributes = %+v, want MaxProcs 4, Changed, SystemScope", attr)
	}
	if got := runtime.GOMAXPROCS(0); got != 4 {
		t.Fatalf("GOMAXPROCS = %d, want 4", got)
	}
}

func TestInitKeepMaxProcs(t *testing.T) {
	preserve(t)
	defaultBackend(t)

	cpu.SetForcedTopology(cpu.Topology{LogicalCPUs: 4, UsableCPUs: 4})
	runtime.GOMAXPROCS(1)

	if err := Init(WithKeepMaxProcs()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	attr, _ := CurrentAttributes()
	if attr.Changed || attr.MaxProcs != 1 || attr.SystemScope {
		t.Fatalf("attributes = %+v, want untouched single proc", attr)
	}
}

func TestInitExplicitMaxProcs(t *testing.T) {
	preserve(t)
	defaultBackend(t)

	cpu.SetForcedTopology(cpu.Topology{LogicalCPUs: 8, UsableCPUs: 8})
	runtime.GOMAXPROCS(2)

	if err := Init(WithMaxProcs(3)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := runtime.GOMAXPROCS(0); got != 3 {
		t.Fatalf("GOMAXPROCS = %d, want 3", got)
	}
}

func TestInitUnsupported(t *testing.T) {
	preserve(t)

	err := Init(WithBackend("serial"))
	if !errors.Is(err, ErrThreadsUnsupported) {
		t.Fatalf("Init err = %v, want ErrThreadsUnsupported", err)
	}
	if CurrentCapabilities().Threaded {
		t.Fatal("serial backend reported as threaded")
	}

	got := collect(64, 8)
	if len(got) != 1 || got[0] != (Range{Min: 0, Max: 64}) {
		t.Fatalf("ranges = %+v, want single [0, 64)", got)
	}
}

func TestInitUnknownBackend(t *testing.T) {
	preserve(t)

	err := Init(WithBackend("pthreads"))

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Init err = %v, want *ConfigError", err)
	}
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Init err = %v, want ErrConfiguration and ErrUnknownBackend", err)
	}
}

func TestInitFromEnvironment(t *testing.T) {
	preserve(t)
	defaultBackend(t)

	t.Setenv(EnvBackend, "serial")
	if err := Init(); !errors.Is(err, ErrThreadsUnsupported) {
		t.Fatalf("Init err = %v, want ErrThreadsUnsupported", err)
	}

	// Options override the environment.
	if err := Init(WithBackend(defaultBackend(t))); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestInitInvalidMaxProcs(t *testing.T) {
	preserve(t)

	t.Setenv(EnvMaxProcs, "-2")
	err := Init()
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrInvalidMaxProcs) {
		t.Fatalf("Init err = %v, want ErrInvalidMaxProcs", err)
	}
}

func TestOnInitHooks(t *testing.T) {
	preserve(t)
	defaultBackend(t)

	var calls atomic.Int32
	var last atomic.Value
	OnInit(func(c Capabilities) {
		calls.Add(1)
		last.Store(c)
	})

	before := calls.Load()
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if calls.Load() != before+1 {
		t.Fatalf("hook ran %d times, want %d", calls.Load(), before+1)
	}
	if c := last.Load().(Capabilities); !c.Threaded || c.Backend != defaultBackend(t) {
		t.Fatalf("hook capabilities = %+v", c)
	}

	// Falling back to serial reports the loss of threads.
	before = calls.Load()
	if err := Init(WithBackend("serial")); !errors.Is(err, ErrThreadsUnsupported) {
		t.Fatalf("Init err = %v, want ErrThreadsUnsupported", err)
	}
	if calls.Load() != before+1 {
		t.Fatalf("hook ran %d times after serial Init, want %d", calls.Load(), before+1)
	}
	if c := last.Load().(Capabilities); c.Threaded || c.MaxWorkers != 1 || c.Backend != "serial" {
		t.Fatalf("hook capabilities after serial Init = %+v", c)
	}

	// A failed Init installs nothing and runs no hooks.
	before = calls.Load()
	if err := Init(WithBackend("pthreads")); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Init err = %v, want ErrConfiguration", err)
	}
	if calls.Load() != before {
		t.Fatal("hook ran after failed Init")
	}

	// A hook registered after a successful Init runs immediately.
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var late atomic.Bool
	OnInit(func(Capabilities) { late.Store(true) })
	if !late.Load() {
		t.Fatal("late hook did not run")
	}
}

func TestInitLogs(t *testing.T) {
	preserve(t)
	want := defaultBackend(t)

	core, logs := observer.New(zap.InfoLevel)
	if err := Init(WithLogger(zap.New(core))); err != nil {
		t.Fatalf("Init: %v", err)
	}

	entries := logs.FilterMessage("threads initialized").All()
	if len(entries) != 1 {
		t.Fatalf("got %d init log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["backend"]; got != want {
		t.Errorf("logged backend = %v, want %s", got, want)
	}
}

func TestCapabilitiesBeforeInit(t *testing.T) {
	uninstall(t)

	if Initialized() {
		t.Fatal("Initialized reports true")
	}
	c := CurrentCapabilities()
	if c.Threaded || c.MaxWorkers != 1 {
		t.Fatalf("capabilities = %+v, want unthreaded single worker", c)
	}
	if _, ok := CurrentAttributes(); ok {
		t.Fatal("CurrentAttributes ok before Init")
	}
}

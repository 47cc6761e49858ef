package threads

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-threads/internal/cpu"
	"github.com/cwbudde/algo-threads/internal/thread/registry"
)

// Attributes is the process-wide thread configuration established by Init.
// It is read-only after Init returns.
type Attributes struct {
	// Joinable reports that every spawned worker is joined by the dispatcher.
	Joinable bool

	// SystemScope reports that workers are scheduled across more than one OS
	// thread, so blocks really run in parallel.
	SystemScope bool

	// MaxProcs is the GOMAXPROCS value in effect after Init.
	MaxProcs int

	// UsableCPUs is the number of CPUs in the process affinity mask.
	UsableCPUs int

	// Changed reports whether Init had to modify the runtime defaults.
	Changed bool

	// Backend is the name of the selected backend.
	Backend string
}

// Capabilities is what a planner needs to know to decide whether to register
// parallel algorithm variants.
type Capabilities struct {
	Threaded   bool
	Backend    string
	MaxWorkers int
}

type state struct {
	attr    Attributes
	backend registry.Backend
	logger  *zap.Logger
}

var (
	// current is published once by Init and read by every dispatch.
	current atomic.Pointer[state]

	hooksMu sync.Mutex
	hooks   []func(Capabilities)
)

// Init establishes the thread attributes and selects the backend.
//
// Init must run once before the first SpawnLoop and must not run
// concurrently with itself or with any dispatch. Calling it again replaces
// the configuration; this is only meant for tests and tools.
//
// Init returns nil on success, a *ConfigError (matching ErrConfiguration) if
// the attributes or the backend could not be set up, or
// ErrThreadsUnsupported if only the synchronous backend is available. In the
// last two cases SpawnLoop keeps working on its synchronous path. OnInit
// hooks run whenever a backend was installed, so a switch to the serial
// backend is seen as Threaded false.
func Init(opts ...Option) error {
	cfg := ApplyOptions(opts...)
	log := cfg.Logger

	topo := cpu.DetectTopology()
	attr, err := establishAttributes(cfg, topo)
	if err != nil {
		return &ConfigError{Op: "attributes", Err: err}
	}

	entry := registry.Global.Lookup(cfg.Backend)
	if entry == nil {
		return &ConfigError{
			Op:  "backend",
			Err: fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, cfg.Backend, registry.Global.Names()),
		}
	}

	be, err := entry.New(registry.Attributes{
		Joinable:    attr.Joinable,
		SystemScope: attr.SystemScope,
		MaxProcs:    attr.MaxProcs,
	})
	if err != nil {
		return &ConfigError{Op: "backend " + entry.Name, Err: err}
	}
	attr.Backend = be.Name()

	current.Store(&state{attr: attr, backend: be, logger: log})

	log.Info("threads initialized",
		zap.String("backend", attr.Backend),
		zap.Bool("threaded", be.Threaded()),
		zap.Int("maxprocs", attr.MaxProcs),
		zap.Int("usable_cpus", attr.UsableCPUs),
		zap.Bool("system_scope", attr.SystemScope),
		zap.Bool("changed", attr.Changed),
	)

	runHooks(capabilitiesOf(current.Load()))

	if !be.Threaded() {
		return ErrThreadsUnsupported
	}
	return nil
}

// establishAttributes makes sure workers can run in parallel: GOMAXPROCS is
// raised to the usable CPU count (or set to cfg.MaxProcs) unless the caller
// asked to keep it.
func establishAttributes(cfg Config, topo cpu.Topology) (Attributes, error) {
	if cfg.MaxProcs < 0 {
		return Attributes{}, fmt.Errorf("%w: %d", ErrInvalidMaxProcs, cfg.MaxProcs)
	}

	attr := Attributes{
		Joinable:   true,
		MaxProcs:   runtime.GOMAXPROCS(0),
		UsableCPUs: max(topo.UsableCPUs, 1),
	}

	if !cfg.KeepMaxProcs {
		target := cfg.MaxProcs
		if target == 0 && attr.MaxProcs < attr.UsableCPUs {
			target = attr.UsableCPUs
		}
		if target > 0 && target != attr.MaxProcs {
			runtime.GOMAXPROCS(target)
			cfg.Logger.Debug("GOMAXPROCS changed",
				zap.Int("from", attr.MaxProcs),
				zap.Int("to", target),
			)
			attr.MaxProcs = target
			attr.Changed = true
		}
	}

	// With a single usable CPU there is nothing to spread over.
	attr.SystemScope = attr.MaxProcs > 1 || attr.UsableCPUs == 1
	if !attr.SystemScope {
		cfg.Logger.Warn("GOMAXPROCS is 1; workers will not run in parallel",
			zap.Int("usable_cpus", attr.UsableCPUs),
		)
	}
	return attr, nil
}

// OnInit registers a hook that runs after every Init that installed a
// backend, with the resulting capabilities. Threaded is false when only the
// serial backend was available. If a backend is already installed, the hook
// also runs immediately. Planner packages call it from init() to switch
// their parallel variants on or off.
func OnInit(hook func(Capabilities)) {
	if hook == nil {
		return
	}

	hooksMu.Lock()
	hooks = append(hooks, hook)
	hooksMu.Unlock()

	if st := current.Load(); st != nil {
		hook(capabilitiesOf(st))
	}
}

func runHooks(c Capabilities) {
	hooksMu.Lock()
	hs := make([]func(Capabilities), len(hooks))
	copy(hs, hooks)
	hooksMu.Unlock()

	for _, h := range hs {
		h(c)
	}
}

// Initialized reports whether Init has configured a backend.
func Initialized() bool {
	return current.Load() != nil
}

// CurrentAttributes returns the attributes established by Init. The second
// result is false before Init.
func CurrentAttributes() (Attributes, bool) {
	st := current.Load()
	if st == nil {
		return Attributes{}, false
	}
	return st.attr, true
}

// CurrentCapabilities reports the dispatch capabilities of the process.
// Before Init, or with the synchronous backend, Threaded is false and
// MaxWorkers is 1.
func CurrentCapabilities() Capabilities {
	return capabilitiesOf(current.Load())
}

func capabilitiesOf(st *state) Capabilities {
	if st == nil {
		return Capabilities{MaxWorkers: 1}
	}
	c := Capabilities{
		Threaded:   st.backend.Threaded(),
		Backend:    st.attr.Backend,
		MaxWorkers: 1,
	}
	if c.Threaded {
		c.MaxWorkers = max(min(st.attr.MaxProcs, st.attr.UsableCPUs), 1)
	}
	return c
}

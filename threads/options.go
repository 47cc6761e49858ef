package threads

import (
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
)

// Environment variables read by DefaultConfig.
const (
	EnvBackend      = "ALGO_THREADS_BACKEND"
	EnvMaxProcs     = "ALGO_THREADS_MAXPROCS"
	EnvKeepMaxProcs = "ALGO_THREADS_KEEP_MAXPROCS"
)

// Config holds the settings Init works from.
type Config struct {
	// Backend names the thread backend. Empty selects the highest priority one.
	Backend string

	// MaxProcs is the GOMAXPROCS value to establish. 0 raises GOMAXPROCS to
	// the number of usable CPUs if it is lower.
	MaxProcs int

	// KeepMaxProcs leaves GOMAXPROCS untouched.
	KeepMaxProcs bool

	// Logger receives initialization and fatal error records.
	Logger *zap.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the configuration described by the environment.
func DefaultConfig() Config {
	return Config{
		Backend:      env.Str(EnvBackend),
		MaxProcs:     env.Int(EnvMaxProcs, 0),
		KeepMaxProcs: env.Bool(EnvKeepMaxProcs),
		Logger:       zap.NewNop(),
	}
}

// WithBackend selects a backend by name ("osthread", "region", "serial").
func WithBackend(name string) Option {
	return func(cfg *Config) {
		if name != "" {
			cfg.Backend = name
		}
	}
}

// WithMaxProcs sets the GOMAXPROCS value Init establishes.
func WithMaxProcs(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxProcs = n
		}
	}
}

// WithKeepMaxProcs stops Init from changing GOMAXPROCS.
func WithKeepMaxProcs() Option {
	return func(cfg *Config) {
		cfg.KeepMaxProcs = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// ApplyOptions applies zero or more options to DefaultConfig.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

package core

import (
	"log/slog"
	"runtime"
)

// Config defines common evaluation settings shared by the density and
// forward-recursion packages.
type Config struct {
	// Workers is the number of goroutines used for data-parallel work.
	// A value of 1 forces sequential evaluation on the calling goroutine.
	Workers int

	// Logger receives debug-level diagnostics. It never receives output
	// above Debug level.
	Logger *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a config that uses every available core and
// discards log output.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		Logger:  slog.New(slog.DiscardHandler),
	}
}

// WithWorkers sets the worker count. Values below 1 keep the default.
func WithWorkers(workers int) Option {
	return func(cfg *Config) {
		if workers > 0 {
			cfg.Workers = workers
		}
	}
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

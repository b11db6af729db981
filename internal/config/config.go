// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load(ctx) layers an optional YAML file and GRANARY_* env vars on top.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// JobQueueSize bounds the in-memory distribution job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of allocation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the request deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxEarnersLimit caps GET /earners?limit.
	MaxEarnersLimit int `koanf:"max_earners_limit"`

	// SnapshotIntervalMS sets how often the earnings board publishes a
	// read snapshot.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// TopCacheSize sets how many top entries each snapshot caches.
	TopCacheSize int `koanf:"top_cache_size"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		JobQueueSize:       100_000,
		WorkerCount:        runtime.NumCPU() * 10,
		DedupeSize:         500_000,
		MaxEarnersLimit:    100,
		SnapshotIntervalMS: 1000,
		TopCacheSize:       500,
	}
	return c
}

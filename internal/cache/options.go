package cache

import (
	"log/slog"
	"time"
)

const (
	// DefaultTTL is used by NewDefault.
	DefaultTTL = 15 * time.Minute
	// DefaultMaxSize bounds a cache unless WithMaxSize says otherwise.
	DefaultMaxSize = 16 * 1024
)

type config struct {
	maxSize   int
	now       func() time.Time
	retention Retention
	logger    *slog.Logger
	metrics   Metrics
}

func defaultConfig() *config {
	return &config{
		maxSize: DefaultMaxSize,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		metrics: NopMetrics(),
	}
}

// Option configures a Cache at construction time.
type Option func(*config)

// WithMaxSize bounds the number of entries. Zero means unbounded;
// negative values make New fail with ErrInvalidMaxSize.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithClock replaces time.Now as the source of "now". Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithWeakValues holds values through weak pointers so the garbage
// collector may reclaim them before they expire.
func WithWeakValues() Option {
	return WithRetention(RetainWeak)
}

// WithRetention sets the retention mode explicitly.
func WithRetention(r Retention) Option {
	return func(c *config) { c.retention = r }
}

// WithLogger enables debug logging of construction and sweeps. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics installs an instrumentation sink. Nil is ignored.
func WithMetrics(m Metrics) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

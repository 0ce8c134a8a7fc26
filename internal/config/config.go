// Package config loads the expcache binary settings from the environment.
//
// A .env file in the working directory is read once, best effort, before
// the first parse. Variables already set in the process environment win.
//
//	EXPCACHE_TTL=30s
//	EXPCACHE_MAX_SIZE=1000
//	EXPCACHE_WEAK_VALUES=false
//	EXPCACHE_LOG_LEVEL=debug
//	EXPCACHE_LOG_FORMAT=json
package config

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"expcache/internal/cache"
	"expcache/internal/logger"
)

// Prefix is prepended to every variable name.
const Prefix = "EXPCACHE_"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidLogging is returned when the log level or format is not recognised.
	ErrInvalidLogging = errors.New("invalid logging configuration")
)

var dotenvLoaded sync.Once

// Config holds the binary settings.
type Config struct {
	TTL        time.Duration `env:"TTL" envDefault:"15m"`
	MaxSize    int           `env:"MAX_SIZE" envDefault:"16384"`
	WeakValues bool          `env:"WEAK_VALUES" envDefault:"false"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads Config from the environment.
//
// TTL and MaxSize are not range-checked here; cache.New rejects bad values.
func Load() (Config, error) {
	dotenvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// CacheOptions maps the settings onto cache options. TTL is passed to
// cache.New separately.
func (c Config) CacheOptions(extra ...cache.Option) []cache.Option {
	opts := []cache.Option{cache.WithMaxSize(c.MaxSize)}
	if c.WeakValues {
		opts = append(opts, cache.WithWeakValues())
	}
	return append(opts, extra...)
}

// LoggerOptions validates the logging settings and maps them onto logger options.
func (c Config) LoggerOptions() ([]logger.Option, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Join(ErrInvalidLogging, err)
	}

	format := logger.Format(c.LogFormat)
	switch format {
	case logger.FormatJSON, logger.FormatText:
	default:
		return nil, errors.Join(ErrInvalidLogging, errors.New("log format must be json or text"))
	}

	return []logger.Option{
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithAttr(slog.String("service", "expcache")),
	}, nil
}

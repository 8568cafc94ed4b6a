// Package logger holds the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level and output format.
type Config struct {
	Level  string    `yaml:"level"`  // debug, info, warn, error
	Format string    `yaml:"format"` // console or json
	Output io.Writer `yaml:"-"`      // defaults to stderr
}

var (
	mu   sync.RWMutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Logger()
)

// Setup replaces the process logger.
func Setup(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime, NoColor: cfg.Output != nil}
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

// Get returns the process logger for structured events.
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// With returns a child logger carrying one extra string field.
func With(key, value string) zerolog.Logger {
	return Get().With().Str(key, value).Logger()
}

func Debugf(format string, args ...any) { Get().Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { Get().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { Get().Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { Get().Error().Msgf(format, args...) }

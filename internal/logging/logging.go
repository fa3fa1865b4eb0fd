// Package logging configures the process-wide zerolog logger and hands out
// per-component child loggers, the shape used by ManuGH-xg2g's internal/log
// package: a once-initialized, level-gated logger built on zerolog.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the options for the one-time global configuration.
type Config struct {
	Level  string    // zerolog level name; defaults to "info"
	Output io.Writer // defaults to os.Stderr
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initializes the global logger exactly once; later calls are
// no-ops.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		w := cfg.Output
		if w == nil {
			w = os.Stderr
		}

		base = zerolog.New(w).With().
			Timestamp().
			Str("service", "hlsdl").
			Logger()
	})
}

// For returns a logger annotated with component, e.g. logging.For("job").
// Safe to call before Configure: it falls back to a default-configured base.
func For(component string) zerolog.Logger {
	once.Do(func() {
		base = zerolog.New(os.Stderr).With().Timestamp().Str("service", "hlsdl").Logger()
	})
	return base.With().Str("component", component).Logger()
}

// Command hlsdl is the outer CLI wrapping the download engine: job
// lifecycle commands (start/pause/cancel/retry-merge/list) over the
// process-wide engine and its store. Grounded in the cobra root/subcommand
// split from the xg2g daemon's cmd package, retargeted at this engine's
// operations instead of a daemon's config/report/status set.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/streamvault/hlsdl/internal/config"
	"github.com/streamvault/hlsdl/internal/engine"
	"github.com/streamvault/hlsdl/internal/events"
	"github.com/streamvault/hlsdl/internal/logging"
	"github.com/streamvault/hlsdl/internal/store"
)

var (
	cfgPath string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "hlsdl",
	Short: "Adaptive-stream download engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (defaults to the XDG config location)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the job database (overrides the config's database_path)")

	rootCmd.AddCommand(addCmd, startCmd, pauseCmd, cancelCmd, retryMergeCmd, listCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildEngine wires a store, event sink, and engine from the resolved
// config, used identically by every subcommand.
func buildEngine() (*engine.Engine, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("hlsdl: loading config: %w", err)
	}
	logging.Configure(logging.Config{Level: cfg.LogLevel})

	path := dbPath
	if path == "" {
		path = cfg.DatabasePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("hlsdl: preparing database directory: %w", err)
	}

	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("hlsdl: opening database: %w", err)
	}

	engCfg := &engine.Config{
		DefaultThreads:   cfg.DefaultThreads,
		DefaultOutputDir: cfg.OutputDir,
	}

	return engine.New(engCfg, st, consoleSink{})
}

// consoleSink prints every event to stdout; a real deployment would hand
// the engine an event sink backed by the HTTP/WS layer instead.
type consoleSink struct{}

func (consoleSink) Emit(e events.Event) {
	switch e.Kind {
	case events.KindDownloadStatus:
		fmt.Printf("[%s] %s %s\n", e.JobID, e.Status, e.Message)
	case events.KindDownloadProgress:
		fmt.Printf("[%s] %.1f%% (%d segments, %d B/s)\n", e.JobID, e.Progress, e.DownloadedSegments, e.Speed)
	case events.KindMergeProgress:
		fmt.Printf("[%s] merging %.1f%%\n", e.JobID, e.Progress)
	}
}

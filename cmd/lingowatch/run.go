package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"lingowatch/internal/archive"
	"lingowatch/internal/config"
	"lingowatch/internal/monitor"
	"lingowatch/internal/pipeline"
	"lingowatch/internal/processed"
	"lingowatch/internal/publish"
	"lingowatch/internal/source"
)

var (
	flagInterval string
	flagProxy    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the playlist monitor loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagInterval != "" {
			cfg.Monitor.Interval = flagInterval
		}
		if cmd.Flags().Changed("proxy") {
			cfg.Proxy.Enabled = flagProxy
		}
		return runMonitor(cmd.Context(), cfg)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single sweep over all playlists and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Monitor.RunOnce = true
		return runMonitor(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&flagInterval, "interval", "", "poll interval, e.g. 60s (overrides config)")
	runCmd.Flags().BoolVar(&flagProxy, "proxy", false, "enable the configured network proxy")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
}

func runMonitor(parent context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// One monitor per state directory: the processed record and the scratch
	// directory tolerate no second writer.
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.LockFile), 0o755); err != nil {
		return fmt.Errorf("failed to create lock dir: %w", err)
	}
	lock := flock.New(cfg.Paths.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire monitor lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another monitor is already running against %s", cfg.Paths.LockFile)
	}
	defer lock.Unlock()

	mon, cleanup, err := buildMonitor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

func buildMonitor(cfg *config.Config) (*monitor.Monitor, func(), error) {
	store := processed.Open(cfg.Paths.StateFile, cfg.PlaylistNames())

	records, err := publish.OpenRecords(cfg.Paths.PublishDB)
	if err != nil {
		return nil, nil, err
	}

	adapters := make(map[string]source.Adapter, len(cfg.Playlists))
	for _, pl := range cfg.Playlists {
		adapter, err := source.New(pl.Source, cfg)
		if err != nil {
			records.Close()
			return nil, nil, fmt.Errorf("playlist %s: %w", pl.Name, err)
		}
		adapters[pl.Name] = adapter
	}

	runner := pipeline.NewRunner(cfg.Paths.ScratchDir,
		pipeline.NewCollaborator(cfg.Pipeline, cfg.Proxy, cfg.Paths.ScratchDir))
	archiver := archive.NewArchiver(cfg.Paths.HistoryDir, cfg.Paths.ScratchDir)
	dispatcher := publish.NewDispatcher(cfg.Uploaders, records)

	mon := monitor.New(cfg, adapters, store, runner, archiver, dispatcher)
	cleanup := func() {
		if err := records.Close(); err != nil {
			slog.Warn("Failed to close publish records", "error", err)
		}
	}
	return mon, cleanup, nil
}

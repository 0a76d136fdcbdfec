// Package monitor is the top-level scheduler: it periodically sweeps every
// configured playlist, feeding new items one at a time through pipeline,
// archiver and publisher. Items are strictly sequential even across
// playlists; the pipeline's scratch directory is shared and its stages are
// not reentrant.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lingowatch/internal/config"
	"lingowatch/internal/publish"
	"lingowatch/internal/selector"
	"lingowatch/internal/source"
)

// Store is the processed-item record. Once Mark returns, the item is
// permanently considered handled: done means attempted, not succeeded, so
// a failing item can never wedge the monitor into a retry loop.
type Store interface {
	Contains(playlist, id string) bool
	Mark(playlist, id string) error
}

type Runner interface {
	Run(ctx context.Context, item source.Item, playlist config.PlaylistConfig) error
}

type Archiver interface {
	ItemDir(playlistName string, item source.Item) string
	Archive(playlist config.PlaylistConfig, item source.Item) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, playlist config.PlaylistConfig, item source.Item, archiveDir string) []publish.Result
}

type Monitor struct {
	cfg        *config.Config
	adapters   map[string]source.Adapter
	store      Store
	runner     Runner
	archiver   Archiver
	dispatcher Dispatcher
	interval   time.Duration
	itemDelay  time.Duration
}

func New(cfg *config.Config, adapters map[string]source.Adapter, store Store, runner Runner, archiver Archiver, dispatcher Dispatcher) *Monitor {
	return &Monitor{
		cfg:        cfg,
		adapters:   adapters,
		store:      store,
		runner:     runner,
		archiver:   archiver,
		dispatcher: dispatcher,
		interval:   cfg.Interval(),
		itemDelay:  cfg.ItemDelay(),
	}
}

// Run sweeps immediately, then on every interval tick until the context is
// cancelled. A failing sweep is logged and the loop keeps going; only
// cancellation stops it.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("Monitor started", "interval", m.interval, "playlists", len(m.cfg.Playlists))

	m.sweep(ctx)
	if m.cfg.Monitor.RunOnce {
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// RunOnce performs a single sweep, for the manual test pass.
func (m *Monitor) RunOnce(ctx context.Context) {
	m.sweep(ctx)
}

func (m *Monitor) sweep(ctx context.Context) {
	sweepID := uuid.NewString()[:8]
	log := slog.With("sweep", sweepID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Sweep panicked, returning to idle", "panic", r)
		}
	}()

	log.Info("Sweep started")
	start := time.Now()
	total := 0

	for _, playlist := range m.cfg.Playlists {
		if ctx.Err() != nil {
			log.Info("Sweep interrupted")
			return
		}
		total += m.sweepPlaylist(ctx, log, playlist)
	}

	log.Info("Sweep finished", "processed", total, "elapsed", time.Since(start).Round(time.Millisecond))
}

func (m *Monitor) sweepPlaylist(ctx context.Context, log *slog.Logger, playlist config.PlaylistConfig) int {
	adapter, ok := m.adapters[playlist.Name]
	if !ok {
		log.Error("No source adapter for playlist", "playlist", playlist.Name)
		return 0
	}

	items, err := adapter.Fetch(ctx, playlist)
	if err != nil {
		// Recoverable: an empty fetch means "try again next sweep",
		// never "the playlist is empty".
		log.Warn("Playlist fetch failed, will retry next sweep", "playlist", playlist.Name, "error", err)
		return 0
	}

	fresh := selector.SelectNew(items, func(id string) bool {
		return m.store.Contains(playlist.Name, id)
	})
	log.Info("Playlist checked", "playlist", playlist.Name, "fetched", len(items), "new", len(fresh))

	processed := 0
	for i, item := range fresh {
		if ctx.Err() != nil {
			log.Info("Sweep interrupted mid-playlist", "playlist", playlist.Name)
			return processed
		}

		if m.processItem(ctx, log, playlist, item) {
			processed++
		}

		// Fixed breather between items, skipped after the last one.
		if i < len(fresh)-1 {
			if !sleepCtx(ctx, m.itemDelay) {
				return processed
			}
		}
	}
	return processed
}

// processItem runs one item end to end and reports whether the pipeline
// succeeded. The item is marked processed no matter what happened, and the
// mark is persisted before the next item starts.
func (m *Monitor) processItem(ctx context.Context, log *slog.Logger, playlist config.PlaylistConfig, item source.Item) bool {
	log.Info("Processing item", "playlist", playlist.Name, "item_id", item.ID, "title", item.Title)

	if err := m.runner.Run(ctx, item, playlist); err != nil {
		if ctx.Err() != nil {
			// Interrupted mid-item: leave it unmarked so the next start
			// retries it from scratch. Safe because every run pre-clears
			// the scratch directory.
			log.Info("Interrupted mid-item, leaving unmarked", "playlist", playlist.Name, "item_id", item.ID)
			return false
		}
		log.Error("Pipeline failed, item marked and skipped", "playlist", playlist.Name, "item_id", item.ID, "error", err)
		m.mark(log, playlist.Name, item.ID)
		return false
	}

	archiveDir, err := m.archiver.Archive(playlist, item)
	if err != nil {
		// Publish is still attempted against the expected location; it
		// reports its own failure if the files never arrived.
		log.Error("Archiving failed", "playlist", playlist.Name, "item_id", item.ID, "error", err)
		archiveDir = m.archiver.ItemDir(playlist.Name, item)
	}

	m.dispatcher.Dispatch(ctx, playlist, item, archiveDir)
	m.mark(log, playlist.Name, item.ID)

	log.Info("Item processed", "playlist", playlist.Name, "item_id", item.ID)
	return true
}

func (m *Monitor) mark(log *slog.Logger, playlist, id string) {
	if err := m.store.Mark(playlist, id); err != nil {
		log.Error("Failed to persist processed mark", "playlist", playlist, "item_id", id, "error", err)
	}
}

// sleepCtx waits for d or until the context is cancelled; it reports false
// on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Package publish delivers archived videos to downstream platforms.
// Publishing is strictly best effort: a failure is logged and never blocks
// marking the item processed. Successful publishes are recorded per
// (item, platform) so a re-run of the dispatcher does not upload twice.
package publish

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

// Request carries everything a platform target needs for one upload.
type Request struct {
	FilePath string
	Playlist string
	Title    string
	// ScheduleAt is the absolute publish instant; the zero value means
	// publish immediately.
	ScheduleAt time.Time
}

// Target is one platform's publish collaborator. Session and auth state
// live entirely inside the collaborator.
type Target interface {
	Name() string
	Publish(ctx context.Context, req Request) error
}

var targetFactories = map[string]func(cfg config.UploaderConfig) Target{}

func RegisterTarget(platform string, fn func(cfg config.UploaderConfig) Target) {
	targetFactories[platform] = fn
}

// Result reports one platform's outcome for one item.
type Result struct {
	Platform string
	Skipped  bool
	Err      error
}

// RecordStore tracks which (item, platform) pairs have already been
// published.
type RecordStore interface {
	IsPublished(ctx context.Context, itemID, platform string) (bool, error)
	MarkPublished(ctx context.Context, itemID, platform string) error
}

type Dispatcher struct {
	uploaders map[string]config.UploaderConfig
	targets   map[string]Target
	records   RecordStore
	now       func() time.Time
}

// NewDispatcher builds targets for every enabled uploader. A configured
// platform with no registered collaborator is logged and skipped, not
// fatal.
func NewDispatcher(uploaders map[string]config.UploaderConfig, records RecordStore) *Dispatcher {
	d := &Dispatcher{
		uploaders: uploaders,
		targets:   make(map[string]Target),
		records:   records,
		now:       time.Now,
	}
	for platform, cfg := range uploaders {
		if !cfg.Enabled {
			continue
		}
		fn, ok := targetFactories[platform]
		if !ok {
			slog.Warn("No publish collaborator for platform, skipping", "platform", platform)
			continue
		}
		d.targets[platform] = fn(cfg)
	}
	return d
}

// Platforms returns the enabled platform names in stable order.
func (d *Dispatcher) Platforms() []string {
	names := make([]string, 0, len(d.targets))
	for name := range d.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch attempts a publish on every enabled platform for one archived
// item. Failures are logged per platform and never escalate.
func (d *Dispatcher) Dispatch(ctx context.Context, playlist config.PlaylistConfig, item source.Item, archiveDir string) []Result {
	results := make([]Result, 0, len(d.targets))
	for _, platform := range d.Platforms() {
		results = append(results, d.dispatchOne(ctx, platform, playlist, item, archiveDir))
	}
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, platform string, playlist config.PlaylistConfig, item source.Item, archiveDir string) Result {
	target := d.targets[platform]

	if d.records != nil {
		published, err := d.records.IsPublished(ctx, item.ID, platform)
		if err != nil {
			slog.Warn("Publish record lookup failed, attempting publish anyway", "platform", platform, "item_id", item.ID, "error", err)
		} else if published {
			slog.Info("Already published, skipping", "platform", platform, "item_id", item.ID)
			return Result{Platform: platform, Skipped: true}
		}
	}

	filePath := filepath.Join(archiveDir, playlist.Mode.OutputFile())
	if _, err := os.Stat(filePath); err != nil {
		slog.Error("Publish file not found", "platform", platform, "item_id", item.ID, "file", filePath, "error", err)
		return Result{Platform: platform, Err: err}
	}

	req := Request{
		FilePath:   filePath,
		Playlist:   playlist.Name,
		Title:      ResolveTitle(archiveDir, item.Title),
		ScheduleAt: ScheduleFor(d.uploaders[platform], d.now()),
	}

	slog.Info("Publishing", "platform", platform, "item_id", item.ID, "file", filePath, "scheduled", !req.ScheduleAt.IsZero())
	if err := target.Publish(ctx, req); err != nil {
		slog.Error("Publish failed", "platform", platform, "item_id", item.ID, "error", err)
		return Result{Platform: platform, Err: err}
	}

	if d.records != nil {
		if err := d.records.MarkPublished(ctx, item.ID, platform); err != nil {
			slog.Warn("Publish succeeded but record write failed", "platform", platform, "item_id", item.ID, "error", err)
		}
	}
	slog.Info("Published", "platform", platform, "item_id", item.ID)
	return Result{Platform: platform}
}

// ScheduleFor resolves an uploader's schedule setting against the current
// time. Auto-schedule off or an empty time of day means immediate; an
// "HH:MM" value means tomorrow at that local time.
func ScheduleFor(cfg config.UploaderConfig, now time.Time) time.Time {
	if !cfg.AutoSchedule || cfg.ScheduleTime == "" {
		return time.Time{}
	}
	hour, minute, err := config.ParseTimeOfDay(cfg.ScheduleTime)
	if err != nil {
		slog.Warn("Unparseable schedule_time, publishing immediately", "schedule_time", cfg.ScheduleTime, "error", err)
		return time.Time{}
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, now.Location())
}

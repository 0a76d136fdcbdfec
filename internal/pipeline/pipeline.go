// Package pipeline drives one item through the external translation and
// dubbing pipeline. Stages run strictly in order and share a single scratch
// directory, so runs never overlap and the scratch area is wiped before
// each run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

// Stage names understood by the pipeline collaborator. The subtitle run is
// a prefix of the dubbing run.
var subtitleStages = []string{
	"transcribe",
	"split_sentences",
	"split_meaning",
	"summarize",
	"translate",
	"split_subtitles",
	"align_subtitles",
	"merge_subtitles",
}

var dubbingStages = []string{
	"audio_tasks",
	"dub_chunks",
	"reference_audio",
	"generate_audio",
	"merge_audio",
	"merge_dub",
}

// StagesFor returns the ordered stage list for a processing mode.
func StagesFor(mode config.Mode) []string {
	stages := make([]string, 0, len(subtitleStages)+len(dubbingStages))
	stages = append(stages, subtitleStages...)
	if mode == config.ModeDubbing {
		stages = append(stages, dubbingStages...)
	}
	return stages
}

// StageExecutor is the boundary to the external pipeline collaborator.
// Every call blocks until the stage finishes; an error means the stage
// failed and the run must abort.
type StageExecutor interface {
	Download(ctx context.Context, item source.Item) error
	RunStage(ctx context.Context, stage string) error
}

// Runner executes the full stage sequence for one item. Items are processed
// one at a time: the scratch directory is shared, so overlapping runs would
// corrupt each other's bundles.
type Runner struct {
	scratchDir string
	executor   StageExecutor
}

func NewRunner(scratchDir string, executor StageExecutor) *Runner {
	return &Runner{scratchDir: scratchDir, executor: executor}
}

// Run processes one item. The scratch directory is cleared first so no
// partial output from an aborted earlier run can leak into this item's
// bundle. There are no retries: the first failing stage fails the run.
func (r *Runner) Run(ctx context.Context, item source.Item, playlist config.PlaylistConfig) error {
	if err := r.clearScratch(); err != nil {
		return fmt.Errorf("failed to clear scratch directory: %w", err)
	}

	slog.Info("Downloading video", "playlist", playlist.Name, "item_id", item.ID, "url", item.URL)
	if err := r.executor.Download(ctx, item); err != nil {
		return fmt.Errorf("download failed for %s: %w", item.ID, err)
	}

	for _, stage := range StagesFor(playlist.Mode) {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Info("Running pipeline stage", "playlist", playlist.Name, "item_id", item.ID, "stage", stage)
		if err := r.executor.RunStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %s failed for %s: %w", stage, item.ID, err)
		}
	}

	return nil
}

// clearScratch removes every entry under the scratch directory, creating
// the directory if it does not exist yet.
func (r *Runner) clearScratch() error {
	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(r.scratchDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(r.scratchDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

type fakeExecutor struct {
	downloaded []string
	stages     []string
	failStage  string
	onDownload func() error
}

func (f *fakeExecutor) Download(ctx context.Context, item source.Item) error {
	if f.onDownload != nil {
		if err := f.onDownload(); err != nil {
			return err
		}
	}
	f.downloaded = append(f.downloaded, item.ID)
	return nil
}

func (f *fakeExecutor) RunStage(ctx context.Context, stage string) error {
	if stage == f.failStage {
		return errors.New("stage blew up")
	}
	f.stages = append(f.stages, stage)
	return nil
}

func subtitlePlaylist() config.PlaylistConfig {
	return config.PlaylistConfig{Name: "subs", Mode: config.ModeSubtitle}
}

func TestStagesForModes(t *testing.T) {
	sub := StagesFor(config.ModeSubtitle)
	dub := StagesFor(config.ModeDubbing)

	if len(sub) != 8 {
		t.Errorf("subtitle stages: got %d, want 8", len(sub))
	}
	if len(dub) != 14 {
		t.Errorf("dubbing stages: got %d, want 14", len(dub))
	}
	// The dubbing run extends the subtitle run, it never reorders it.
	for i, stage := range sub {
		if dub[i] != stage {
			t.Errorf("stage %d: dubbing has %q, subtitle has %q", i, dub[i], stage)
		}
	}
	if dub[len(dub)-1] != "merge_dub" {
		t.Errorf("last dubbing stage: got %q", dub[len(dub)-1])
	}
}

func TestRunClearsLeftoverScratch(t *testing.T) {
	scratch := t.TempDir()

	// Leftovers from a previous, possibly failed run.
	if err := os.WriteFile(filepath.Join(scratch, "old_video.mp4"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(scratch, "log"), 0o755); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(scratch, &fakeExecutor{})
	if err := runner.Run(context.Background(), source.Item{ID: "new1", Title: "New"}, subtitlePlaylist()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch still holds leftovers: %v", entries)
	}
}

func TestRunClearsScratchBeforeDownload(t *testing.T) {
	scratch := t.TempDir()
	if err := os.WriteFile(filepath.Join(scratch, "stale.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{}
	exec.onDownload = func() error {
		entries, err := os.ReadDir(scratch)
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			t.Errorf("scratch not cleared before download: %v", entries)
		}
		return nil
	}

	runner := NewRunner(scratch, exec)
	if err := runner.Run(context.Background(), source.Item{ID: "n", Title: "N"}, subtitlePlaylist()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunAbortsOnStageFailure(t *testing.T) {
	runner := NewRunner(t.TempDir(), &fakeExecutor{failStage: "translate"})
	exec := runner.executor.(*fakeExecutor)

	err := runner.Run(context.Background(), source.Item{ID: "v1", Title: "V"}, subtitlePlaylist())
	if err == nil {
		t.Fatal("expected stage failure to fail the run")
	}

	for _, stage := range exec.stages {
		if stage == "split_subtitles" || stage == "align_subtitles" || stage == "merge_subtitles" {
			t.Errorf("stage %s ran after the failure", stage)
		}
	}
}

func TestRunMissingScratchDirIsCreated(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "not", "yet", "there")
	runner := NewRunner(scratch, &fakeExecutor{})

	if err := runner.Run(context.Background(), source.Item{ID: "v1", Title: "V"}, subtitlePlaylist()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(scratch); err != nil {
		t.Errorf("scratch dir not created: %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExecutor{}
	runner := NewRunner(t.TempDir(), exec)

	// Download is allowed to observe the cancellation itself; the stage loop
	// must not start.
	_ = runner.Run(ctx, source.Item{ID: "v1", Title: "V"}, subtitlePlaylist())
	if len(exec.stages) != 0 {
		t.Errorf("stages ran under a cancelled context: %v", exec.stages)
	}
}

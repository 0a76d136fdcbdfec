package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lingowatch/internal/archive"
	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

// seedRecord archives a fake bundle so history tests run against the real
// on-disk layout.
func seedRecord(t *testing.T, historyDir, playlist, id, title string, processedAt time.Time) string {
	t.Helper()
	scratch := t.TempDir()
	if err := os.WriteFile(filepath.Join(scratch, "output_sub.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := archive.NewArchiver(historyDir, scratch)
	dir, err := a.Archive(config.PlaylistConfig{Name: playlist, Mode: config.ModeSubtitle, URL: "https://example.com/pl"}, source.Item{ID: id, Title: title})
	if err != nil {
		t.Fatalf("seed archive failed: %v", err)
	}

	// Rewrite the descriptor with the wanted timestamp.
	info, err := archive.ReadProcessInfo(dir)
	if err != nil {
		t.Fatal(err)
	}
	info.ProcessTime = processedAt.Format(time.RFC3339)
	writeProcessInfo(t, dir, info)
	return dir
}

func writeProcessInfo(t *testing.T, dir string, info *archive.ProcessInfo) {
	t.Helper()
	data := []byte(`{
  "video_id": "` + info.VideoID + `",
  "video_title": "` + info.VideoTitle + `",
  "playlist_name": "` + info.PlaylistName + `",
  "process_time": "` + info.ProcessTime + `",
  "playlist_config": {"name": "` + info.PlaylistName + `", "url": "https://example.com/pl", "mode": "subtitle", "source": "ytdlp"}
}`)
	if err := os.WriteFile(filepath.Join(dir, archive.ProcessInfoFile), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListNewestFirst(t *testing.T) {
	historyDir := filepath.Join(t.TempDir(), "history")
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	seedRecord(t, historyDir, "subs", "old1", "Old Video", now.Add(-48*time.Hour))
	seedRecord(t, historyDir, "subs", "new1", "New Video", now.Add(-1*time.Hour))

	m := NewManager(historyDir)
	records, err := m.List("subs")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].Info.VideoID != "new1" {
		t.Errorf("newest first: got %s", records[0].Info.VideoID)
	}
	if len(records[0].Files) == 0 {
		t.Error("file inventory missing")
	}
}

func TestListUnknownPlaylist(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.List("nope"); err == nil {
		t.Error("expected error for unknown playlist")
	}
}

func TestListEmptyHistoryDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))
	records, err := m.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from missing dir", len(records))
	}
}

func TestCleanRemovesOnlyOldRecords(t *testing.T) {
	historyDir := filepath.Join(t.TempDir(), "history")
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	oldDir := seedRecord(t, historyDir, "subs", "old1", "Old", now.AddDate(0, 0, -40))
	newDir := seedRecord(t, historyDir, "subs", "new1", "New", now.AddDate(0, 0, -5))

	m := NewManager(historyDir)
	m.now = func() time.Time { return now }

	removed, err := m.Clean(30)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old record still present")
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Error("recent record was removed")
	}
}

func TestExportSummary(t *testing.T) {
	historyDir := filepath.Join(t.TempDir(), "history")
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	seedRecord(t, historyDir, "subs", "v1", "First", now.Add(-time.Hour))
	seedRecord(t, historyDir, "dubs", "v2", "Second", now.Add(-2*time.Hour))

	m := NewManager(historyDir)
	m.now = func() time.Time { return now }

	outPath := filepath.Join(t.TempDir(), "summary.json")
	summary, err := m.Export(outPath)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if summary.Playlists["subs"].TotalCount != 1 || summary.Playlists["dubs"].TotalCount != 1 {
		t.Errorf("summary counts wrong: %+v", summary.Playlists)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("summary file not written: %v", err)
	}
}

func TestWriteFeed(t *testing.T) {
	historyDir := filepath.Join(t.TempDir(), "history")
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	seedRecord(t, historyDir, "subs", "v1", "Feed Video", now.Add(-time.Hour))

	m := NewManager(historyDir)
	outPath := filepath.Join(t.TempDir(), "archive.xml")
	if err := m.WriteFeed(outPath, 10); err != nil {
		t.Fatalf("WriteFeed failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Feed Video") {
		t.Error("feed missing item title")
	}
}

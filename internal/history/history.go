// Package history inspects and maintains the archive tree that the
// archiver writes. It only ever reads process_info.json descriptors and
// deletes whole item directories; it never touches live scratch output.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lingowatch/internal/archive"
)

// Record is one archived item as seen by the inspection tooling.
type Record struct {
	Playlist string
	Folder   string
	Info     *archive.ProcessInfo
	Files    []FileInfo
}

type FileInfo struct {
	Name string
	Size int64
}

// ProcessedAt parses the record's process_time; the zero time means the
// descriptor was missing or unparseable.
func (r *Record) ProcessedAt() time.Time {
	if r.Info == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, r.Info.ProcessTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *Record) Title() string {
	if r.Info == nil {
		return "Unknown"
	}
	return r.Info.VideoTitle
}

type Manager struct {
	historyDir string
	now        func() time.Time
}

func NewManager(historyDir string) *Manager {
	return &Manager{historyDir: historyDir, now: time.Now}
}

// List returns archived records, newest first. An empty playlist name
// lists every playlist. Records with a missing or broken descriptor are
// still listed, so damaged archives stay visible.
func (m *Manager) List(playlist string) ([]Record, error) {
	playlists, err := m.playlistDirs(playlist)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, name := range playlists {
		playlistDir := filepath.Join(m.historyDir, name)
		entries, err := os.ReadDir(playlistDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read playlist dir %s: %w", name, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			records = append(records, m.loadRecord(name, entry.Name()))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ProcessedAt().After(records[j].ProcessedAt())
	})
	return records, nil
}

// Get loads one record with its file inventory.
func (m *Manager) Get(playlist, folder string) (*Record, error) {
	itemDir := filepath.Join(m.historyDir, playlist, folder)
	if _, err := os.Stat(itemDir); err != nil {
		return nil, fmt.Errorf("archive record not found: %w", err)
	}
	record := m.loadRecord(playlist, folder)
	return &record, nil
}

// Clean removes records whose process_time is older than the given number
// of days and reports how many were removed. Records without a parseable
// descriptor are left alone.
func (m *Manager) Clean(days int) (int, error) {
	records, err := m.List("")
	if err != nil {
		return 0, err
	}

	cutoff := m.now().AddDate(0, 0, -days)
	removed := 0
	for _, record := range records {
		processedAt := record.ProcessedAt()
		if processedAt.IsZero() || !processedAt.Before(cutoff) {
			continue
		}
		itemDir := filepath.Join(m.historyDir, record.Playlist, record.Folder)
		if err := os.RemoveAll(itemDir); err != nil {
			slog.Error("Failed to remove old archive record", "dir", itemDir, "error", err)
			continue
		}
		slog.Info("Removed old archive record", "playlist", record.Playlist, "title", record.Title())
		removed++
	}
	return removed, nil
}

// Summary is the exportable overview of the whole archive.
type Summary struct {
	ExportTime string                     `json:"export_time"`
	Playlists  map[string]PlaylistSummary `json:"playlists"`
}

type PlaylistSummary struct {
	Videos     []archive.ProcessInfo `json:"videos"`
	TotalCount int                   `json:"total_count"`
}

// Export writes a JSON summary of every record with a readable descriptor.
func (m *Manager) Export(outPath string) (*Summary, error) {
	records, err := m.List("")
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ExportTime: m.now().Format(time.RFC3339),
		Playlists:  make(map[string]PlaylistSummary),
	}
	for _, record := range records {
		if record.Info == nil {
			continue
		}
		ps := summary.Playlists[record.Playlist]
		ps.Videos = append(ps.Videos, *record.Info)
		ps.TotalCount++
		summary.Playlists[record.Playlist] = ps
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	return summary, nil
}

func (m *Manager) playlistDirs(playlist string) ([]string, error) {
	if playlist != "" {
		if _, err := os.Stat(filepath.Join(m.historyDir, playlist)); err != nil {
			return nil, fmt.Errorf("playlist %s not found in history: %w", playlist, err)
		}
		return []string{playlist}, nil
	}

	entries, err := os.ReadDir(m.historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (m *Manager) loadRecord(playlist, folder string) Record {
	itemDir := filepath.Join(m.historyDir, playlist, folder)
	record := Record{Playlist: playlist, Folder: folder}

	info, err := archive.ReadProcessInfo(itemDir)
	if err != nil {
		slog.Debug("Archive record has no readable descriptor", "dir", itemDir, "error", err)
	} else {
		record.Info = info
	}

	entries, err := os.ReadDir(itemDir)
	if err != nil {
		return record
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == archive.ProcessInfoFile {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		record.Files = append(record.Files, FileInfo{Name: entry.Name(), Size: fi.Size()})
	}
	return record
}

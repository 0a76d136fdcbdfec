// Package archive moves finished output bundles into the permanent history
// tree. Layout, stable for external tooling:
//
//	history/{playlist}/{id}_{sanitized_title}/
//	    process_info.json
//	    ...moved scratch output...
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"lingowatch/internal/config"
	"lingowatch/internal/source"
)

// ProcessInfoFile is the descriptor written into every archive record.
const ProcessInfoFile = "process_info.json"

// maxTitleLen bounds the sanitized title used in directory names.
const maxTitleLen = 50

// ProcessInfo describes one completed processing run.
type ProcessInfo struct {
	VideoID        string           `json:"video_id"`
	VideoTitle     string           `json:"video_title"`
	PlaylistName   string           `json:"playlist_name"`
	ProcessTime    string           `json:"process_time"`
	PlaylistConfig PlaylistSnapshot `json:"playlist_config"`
}

// PlaylistSnapshot freezes the playlist settings the item was processed
// under, so the record stays interpretable after config changes.
type PlaylistSnapshot struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Mode        string `json:"mode"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

type Archiver struct {
	historyDir string
	scratchDir string
	now        func() time.Time
}

func NewArchiver(historyDir, scratchDir string) *Archiver {
	return &Archiver{
		historyDir: historyDir,
		scratchDir: scratchDir,
		now:        time.Now,
	}
}

// ItemDir is the deterministic archive location for an item.
func (a *Archiver) ItemDir(playlistName string, item source.Item) string {
	return filepath.Join(a.historyDir, playlistName, item.ID+"_"+SanitizeTitle(item.Title))
}

// Archive creates the item's archive record and moves every entry of the
// scratch directory into it. A same-named entry already present in the
// record is replaced, never merged. Partially moved files are not rolled
// back on failure; the scratch area is cleared before the next run anyway.
func (a *Archiver) Archive(playlist config.PlaylistConfig, item source.Item) (string, error) {
	itemDir := a.ItemDir(playlist.Name, item)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}

	info := ProcessInfo{
		VideoID:      item.ID,
		VideoTitle:   item.Title,
		PlaylistName: playlist.Name,
		ProcessTime:  a.now().Format(time.RFC3339),
		PlaylistConfig: PlaylistSnapshot{
			Name:        playlist.Name,
			URL:         playlist.URL,
			Mode:        string(playlist.Mode),
			Source:      playlist.Source,
			Description: playlist.Description,
		},
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode process info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(itemDir, ProcessInfoFile), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write process info: %w", err)
	}

	entries, err := os.ReadDir(a.scratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Scratch directory missing, archiving descriptor only", "playlist", playlist.Name, "item_id", item.ID)
			return itemDir, nil
		}
		return "", fmt.Errorf("failed to read scratch dir: %w", err)
	}

	for _, entry := range entries {
		src := filepath.Join(a.scratchDir, entry.Name())
		dst := filepath.Join(itemDir, entry.Name())
		if err := os.RemoveAll(dst); err != nil {
			return "", fmt.Errorf("failed to replace %s: %w", dst, err)
		}
		if err := moveEntry(src, dst); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", entry.Name(), err)
		}
	}

	slog.Info("Archived output bundle", "playlist", playlist.Name, "item_id", item.ID, "dir", itemDir)
	return itemDir, nil
}

// ReadProcessInfo loads the descriptor of an archive record.
func ReadProcessInfo(itemDir string) (*ProcessInfo, error) {
	data, err := os.ReadFile(filepath.Join(itemDir, ProcessInfoFile))
	if err != nil {
		return nil, err
	}
	var info ProcessInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", ProcessInfoFile, err)
	}
	return &info, nil
}

// SanitizeTitle reduces a video title to a filesystem-safe directory name:
// NFC-normalized, only letters, digits, spaces, hyphens and underscores,
// at most 50 runes.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(title)

	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimRight(b.String(), " ")
	runes := []rune(cleaned)
	if len(runes) > maxTitleLen {
		cleaned = strings.TrimRight(string(runes[:maxTitleLen]), " ")
	}
	return cleaned
}

// moveEntry renames src to dst, falling back to copy-and-delete when the
// two live on different filesystems.
func moveEntry(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := copyDir(src, dst); err != nil {
			return err
		}
	} else {
		if err := copyFile(src, dst, info.Mode()); err != nil {
			return err
		}
	}
	return os.RemoveAll(src)
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if err := copyFile(srcPath, dstPath, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

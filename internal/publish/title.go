package publish

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// terminologyFile is written by the pipeline's summarize stage into the
// bundle's log directory; its theme field doubles as the publish title.
const terminologyFile = "terminology.json"

// ResolveTitle returns the publish title for an archived item: the theme
// from the bundle's terminology document when present, otherwise the
// original video title. Each fallback path logs its own reason so a broken
// override is distinguishable from an absent one.
func ResolveTitle(archiveDir, fallback string) string {
	path := filepath.Join(archiveDir, "log", terminologyFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No title override present, using original title", "file", path)
		} else {
			slog.Warn("Title override unreadable, using original title", "file", path, "error", err)
		}
		return fallback
	}

	var doc struct {
		Theme string `json:"theme"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Title override malformed, using original title", "file", path, "error", err)
		return fallback
	}

	theme := strings.TrimSpace(doc.Theme)
	if theme == "" {
		slog.Warn("Title override has no theme field, using original title", "file", path)
		return fallback
	}
	return theme
}

// truncateTitle caps a title at limit runes for platforms with hard title
// length limits.
func truncateTitle(title string, limit int) string {
	if limit <= 0 {
		return title
	}
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit])
}

// Package processed tracks which playlist items have already been run
// through the pipeline. The record survives restarts and is the only thing
// standing between the monitor and reprocessing the same video forever, so
// every mark is persisted before the caller moves on.
package processed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultRetention caps how many identifiers are kept per playlist. Older
// entries are dropped at load time; insertion order approximates recency.
const DefaultRetention = 1000

type Store struct {
	path      string
	retention int
	sets      map[string][]string
	index     map[string]map[string]bool
}

// Open loads the persisted record from path. A missing or corrupt file is
// not fatal: the store starts empty for the given playlists and the monitor
// carries on. Lists longer than the retention cap are truncated to their
// most recent entries.
func Open(path string, playlists []string) *Store {
	s := &Store{
		path:      path,
		retention: DefaultRetention,
		sets:      make(map[string][]string),
		index:     make(map[string]map[string]bool),
	}
	for _, name := range playlists {
		s.sets[name] = []string{}
		s.index[name] = make(map[string]bool)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Processed store unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}

	var loaded map[string][]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("Processed store corrupt, starting empty", "path", path, "error", err)
		return s
	}

	for name, ids := range loaded {
		if len(ids) > s.retention {
			slog.Info("Trimming processed record", "playlist", name, "from", len(ids), "to", s.retention)
			ids = ids[len(ids)-s.retention:]
		}
		list := make([]string, 0, len(ids))
		idx := make(map[string]bool, len(ids))
		for _, id := range ids {
			if idx[id] {
				continue
			}
			idx[id] = true
			list = append(list, id)
		}
		s.sets[name] = list
		s.index[name] = idx
	}

	return s
}

func (s *Store) Contains(playlist, id string) bool {
	return s.index[playlist][id]
}

// Count reports how many identifiers are recorded for a playlist.
func (s *Store) Count(playlist string) int {
	return len(s.sets[playlist])
}

// Mark records an identifier as processed and persists the full record
// before returning. Marking an identifier twice is a no-op.
func (s *Store) Mark(playlist, id string) error {
	idx, ok := s.index[playlist]
	if !ok {
		idx = make(map[string]bool)
		s.index[playlist] = idx
	}
	if idx[id] {
		return nil
	}
	idx[id] = true
	s.sets[playlist] = append(s.sets[playlist], id)

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to persist processed record: %w", err)
	}
	return nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.sets, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".processed-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

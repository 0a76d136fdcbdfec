package history

import (
	"fmt"
	"os"

	"github.com/gorilla/feeds"
)

// WriteFeed renders the newest archive records as an RSS document, so
// completed work can be followed from a feed reader. Limit bounds the
// number of entries; 0 means everything.
func (m *Manager) WriteFeed(outPath string, limit int) error {
	records, err := m.List("")
	if err != nil {
		return err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	feed := &feeds.Feed{
		Title:       "lingowatch archive",
		Link:        &feeds.Link{Href: "https://github.com/lingowatch/lingowatch"},
		Description: "Videos processed by the playlist monitor",
		Created:     m.now(),
	}

	for _, record := range records {
		if record.Info == nil {
			continue
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          record.Info.VideoID,
			Title:       record.Info.VideoTitle,
			Link:        &feeds.Link{Href: record.Info.PlaylistConfig.URL},
			Description: fmt.Sprintf("Processed from playlist %s", record.Playlist),
			Created:     record.ProcessedAt(),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fmt.Errorf("failed to render feed: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	return nil
}

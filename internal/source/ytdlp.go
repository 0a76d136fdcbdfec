package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lrstanley/go-ytdlp"

	"lingowatch/internal/config"
)

func init() {
	Register("ytdlp", func(cfg *config.Config) Adapter {
		return NewYtdlpAdapter(cfg.Proxy)
	})
}

// YtdlpAdapter lists playlist entries with a flat yt-dlp extraction, the
// same way it would be done on the command line with --flat-playlist -J.
type YtdlpAdapter struct {
	proxy config.ProxyConfig
}

func NewYtdlpAdapter(proxy config.ProxyConfig) *YtdlpAdapter {
	return &YtdlpAdapter{proxy: proxy}
}

func (a *YtdlpAdapter) Name() string {
	return "ytdlp"
}

func (a *YtdlpAdapter) Fetch(ctx context.Context, playlist config.PlaylistConfig) ([]Item, error) {
	dl := ytdlp.New().
		Quiet().
		FlatPlaylist().
		PlaylistItems(fmt.Sprintf("1-%d", MaxItems)).
		DumpSingleJSON().
		SkipDownload()

	if a.proxy.Enabled && a.proxy.YtdlpProxy != "" {
		slog.Debug("Fetching playlist through proxy", "playlist", playlist.Name, "proxy", a.proxy.YtdlpProxy)
		dl = dl.Proxy(a.proxy.YtdlpProxy)
	}

	result, err := dl.Run(ctx, playlist.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlist %s: %w", playlist.Name, err)
	}

	items, total, err := parsePlaylistDump([]byte(result.Stdout))
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist %s listing: %w", playlist.Name, err)
	}

	slog.Debug("Playlist listing fetched", "playlist", playlist.Name, "total", total, "valid", len(items))
	return items, nil
}

type playlistDump struct {
	Entries []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"entries"`
}

// parsePlaylistDump converts a flat-playlist JSON dump into items,
// dropping entries that lack an identifier or a title. It returns the raw
// entry count alongside the valid items.
func parsePlaylistDump(data []byte) ([]Item, int, error) {
	var dump playlistDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, 0, err
	}

	items := make([]Item, 0, len(dump.Entries))
	for _, entry := range dump.Entries {
		if entry.ID == "" || entry.Title == "" {
			continue
		}
		url := entry.URL
		if url == "" {
			url = WatchURL(entry.ID)
		}
		items = append(items, Item{ID: entry.ID, Title: entry.Title, URL: url})
		if len(items) == MaxItems {
			break
		}
	}
	return items, len(dump.Entries), nil
}

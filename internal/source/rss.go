package source

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"lingowatch/internal/config"
)

func init() {
	Register("rss", func(cfg *config.Config) Adapter {
		return NewRSSAdapter(cfg.Proxy)
	})
}

// RSSAdapter lists playlist entries through the playlist's published RSS
// feed. Cheaper than a yt-dlp extraction, but feeds only expose the most
// recent entries, so it suits high-frequency polling of active playlists.
type RSSAdapter struct {
	parser *gofeed.Parser
}

func NewRSSAdapter(proxy config.ProxyConfig) *RSSAdapter {
	parser := gofeed.NewParser()
	client := &http.Client{Timeout: 30 * time.Second}
	if proxy.Enabled && proxy.HTTPSProxy != "" {
		if proxyURL, err := url.Parse(proxy.HTTPSProxy); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		} else {
			slog.Warn("Ignoring malformed proxy URL", "proxy", proxy.HTTPSProxy, "error", err)
		}
	}
	parser.Client = client

	return &RSSAdapter{parser: parser}
}

func (a *RSSAdapter) Name() string {
	return "rss"
}

func (a *RSSAdapter) Fetch(ctx context.Context, playlist config.PlaylistConfig) ([]Item, error) {
	feedURL, err := playlistFeedURL(playlist.URL)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", playlist.Name, err)
	}

	feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s feed: %w", playlist.Name, err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		id := videoIDFromGUID(entry.GUID)
		title := cleanTitle(entry.Title)
		if id == "" || title == "" {
			continue
		}
		link := entry.Link
		if link == "" {
			link = WatchURL(id)
		}
		items = append(items, Item{ID: id, Title: title, URL: link})
		if len(items) == MaxItems {
			break
		}
	}

	slog.Debug("Playlist feed fetched", "playlist", playlist.Name, "total", len(feed.Items), "valid", len(items))
	return items, nil
}

// playlistFeedURL maps a playlist page URL to its RSS feed endpoint.
func playlistFeedURL(playlistURL string) (string, error) {
	parsed, err := url.Parse(playlistURL)
	if err != nil {
		return "", fmt.Errorf("invalid playlist url: %w", err)
	}
	listID := parsed.Query().Get("list")
	if listID == "" {
		return "", fmt.Errorf("playlist url has no list parameter: %s", playlistURL)
	}
	return "https://www.youtube.com/feeds/videos.xml?playlist_id=" + url.QueryEscape(listID), nil
}

// videoIDFromGUID extracts the video identifier from a feed GUID of the
// form "yt:video:ID". A bare GUID is taken as the identifier itself.
func videoIDFromGUID(guid string) string {
	if rest, ok := strings.CutPrefix(guid, "yt:video:"); ok {
		return rest
	}
	return strings.TrimSpace(guid)
}

var titleStripper = bluemonday.StrictPolicy()

func cleanTitle(s string) string {
	s = titleStripper.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

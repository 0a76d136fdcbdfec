// Package source fetches the current contents of a monitored playlist.
// Adapters are pure reads: they never touch the scratch directory or the
// processed record.
package source

import (
	"context"
	"fmt"

	"lingowatch/internal/config"
)

// MaxItems bounds how many of the newest playlist entries a fetch returns,
// so polling cost stays constant no matter how large the playlist grows.
const MaxItems = 50

// Item is one playlist entry. It lives only for the duration of one
// processing pass; the durable record is the archive directory.
type Item struct {
	ID    string
	Title string
	URL   string
}

// Adapter lists the newest items of a playlist. A transport failure returns
// a nil slice and an error; the caller treats that as "try again next
// sweep", not as an empty playlist.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, playlist config.PlaylistConfig) ([]Item, error)
}

var factories = map[string]func(cfg *config.Config) Adapter{}

func Register(name string, fn func(cfg *config.Config) Adapter) {
	factories[name] = fn
}

// New builds the adapter named by the playlist's source setting.
func New(name string, cfg *config.Config) (Adapter, error) {
	fn, exists := factories[name]
	if !exists {
		return nil, fmt.Errorf("unsupported playlist source: %s", name)
	}
	return fn(cfg), nil
}

// WatchURL is the canonical watch page for a video identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

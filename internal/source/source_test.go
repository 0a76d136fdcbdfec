package source

import (
	"fmt"
	"testing"
)

func TestParsePlaylistDumpFiltersMalformedEntries(t *testing.T) {
	dump := []byte(`{
		"entries": [
			{"id": "a1", "title": "First video", "url": "https://youtube.com/watch?v=a1"},
			{"id": "", "title": "No identifier"},
			{"id": "b2", "title": ""},
			{"id": "c3", "title": "Third video"}
		]
	}`)

	items, total, err := parsePlaylistDump(dump)
	if err != nil {
		t.Fatalf("parsePlaylistDump failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total: got %d, want 4", total)
	}
	if len(items) != 2 {
		t.Fatalf("valid items: got %d, want 2", len(items))
	}
	if items[0].ID != "a1" || items[1].ID != "c3" {
		t.Errorf("items out of order: %+v", items)
	}
	// Entries without a url get the canonical watch page.
	if items[1].URL != "https://www.youtube.com/watch?v=c3" {
		t.Errorf("derived url: got %q", items[1].URL)
	}
}

func TestParsePlaylistDumpCapsAtMaxItems(t *testing.T) {
	entries := ""
	for i := 0; i < MaxItems+20; i++ {
		if i > 0 {
			entries += ","
		}
		entries += fmt.Sprintf(`{"id": "v%d", "title": "Video %d"}`, i, i)
	}
	dump := []byte(`{"entries": [` + entries + `]}`)

	items, _, err := parsePlaylistDump(dump)
	if err != nil {
		t.Fatalf("parsePlaylistDump failed: %v", err)
	}
	if len(items) != MaxItems {
		t.Errorf("items: got %d, want %d", len(items), MaxItems)
	}
}

func TestParsePlaylistDumpRejectsGarbage(t *testing.T) {
	if _, _, err := parsePlaylistDump([]byte("not json")); err == nil {
		t.Error("expected error for malformed dump")
	}
}

func TestPlaylistFeedURL(t *testing.T) {
	got, err := playlistFeedURL("https://www.youtube.com/playlist?list=PLxjtcx2z5_41xdg")
	if err != nil {
		t.Fatalf("playlistFeedURL failed: %v", err)
	}
	want := "https://www.youtube.com/feeds/videos.xml?playlist_id=PLxjtcx2z5_41xdg"
	if got != want {
		t.Errorf("feed url: got %q, want %q", got, want)
	}

	if _, err := playlistFeedURL("https://www.youtube.com/watch?v=abc"); err == nil {
		t.Error("expected error for url without list parameter")
	}
}

func TestVideoIDFromGUID(t *testing.T) {
	if got := videoIDFromGUID("yt:video:dQw4w9WgXcQ"); got != "dQw4w9WgXcQ" {
		t.Errorf("guid with prefix: got %q", got)
	}
	if got := videoIDFromGUID("  plainid "); got != "plainid" {
		t.Errorf("bare guid: got %q", got)
	}
}

func TestCleanTitle(t *testing.T) {
	if got := cleanTitle("  Spaced out  "); got != "Spaced out" {
		t.Errorf("got %q", got)
	}
	if got := cleanTitle("<b>Bold</b> &amp; plain"); got != "Bold & plain" {
		t.Errorf("got %q", got)
	}
}

func TestNewUnknownAdapter(t *testing.T) {
	if _, err := New("telnet", nil); err == nil {
		t.Error("expected error for unknown adapter")
	}
}

package publish

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish.db")
	records, err := OpenRecords(path)
	if err != nil {
		t.Fatalf("OpenRecords failed: %v", err)
	}
	defer records.Close()

	ctx := context.Background()

	published, err := records.IsPublished(ctx, "v1", "douyin")
	if err != nil {
		t.Fatalf("IsPublished failed: %v", err)
	}
	if published {
		t.Error("fresh db should have no records")
	}

	if err := records.MarkPublished(ctx, "v1", "douyin"); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}
	// Marking twice is fine.
	if err := records.MarkPublished(ctx, "v1", "douyin"); err != nil {
		t.Fatalf("repeated MarkPublished failed: %v", err)
	}

	published, err = records.IsPublished(ctx, "v1", "douyin")
	if err != nil || !published {
		t.Errorf("record not found after mark: %v %v", published, err)
	}

	// Records are scoped per platform.
	published, err = records.IsPublished(ctx, "v1", "bilibili")
	if err != nil {
		t.Fatalf("IsPublished failed: %v", err)
	}
	if published {
		t.Error("record leaked across platforms")
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish.db")

	records, err := OpenRecords(path)
	if err != nil {
		t.Fatalf("OpenRecords failed: %v", err)
	}
	if err := records.MarkPublished(context.Background(), "v1", "douyin"); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}
	records.Close()

	reopened, err := OpenRecords(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	published, err := reopened.IsPublished(context.Background(), "v1", "douyin")
	if err != nil || !published {
		t.Errorf("record lost across reopen: %v %v", published, err)
	}
}

package filestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkmap/linkmap/internal/model"
)

func TestSnapshotLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	st := New(path)
	ctx := context.Background()

	// Absent snapshot loads as empty, not as an error.
	entries, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load before save: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no entries, got %d", len(entries))
	}

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	saved := []model.SnapshotEntry{{
		ID: "id-1",
		Mapping: model.Mapping{
			ID:          "id-1",
			OriginalURL: "https://example.com",
			ShortCode:   "abc123",
			CreatedAt:   now,
			ExpiresAt:   now.Add(30 * time.Minute),
			Clicks: []model.Click{
				{ID: "c-1", Timestamp: now, Source: "direct", Location: "Unknown"},
			},
			TotalClicks: 1,
		},
	}}
	if err := st.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d entries, want 1", len(loaded))
	}
	got := loaded[0].Mapping
	if got.ShortCode != "abc123" || got.TotalClicks != 1 || len(got.Clicks) != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !got.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", got.ExpiresAt)
	}

	if err := st.Erase(ctx); err != nil {
		t.Fatalf("erase: %v", err)
	}
	entries, err = st.Load(ctx)
	if err != nil || entries != nil {
		t.Errorf("snapshot survived erase: entries=%v err=%v", entries, err)
	}

	// Erasing an already absent snapshot is fine.
	if err := st.Erase(ctx); err != nil {
		t.Errorf("double erase: %v", err)
	}
}

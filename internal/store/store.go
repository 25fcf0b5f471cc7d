// Package store defines the snapshot persistence contract the registry
// depends on. Implementations overwrite the whole snapshot on every save;
// the registry never issues partial writes.
package store

import (
	"context"

	"github.com/linkmap/linkmap/internal/model"
)

type Store interface {
	// Load returns the last saved snapshot. A missing snapshot is not an
	// error: implementations return (nil, nil) so the registry starts empty.
	Load(ctx context.Context) ([]model.SnapshotEntry, error)
	// Save replaces the snapshot with entries.
	Save(ctx context.Context, entries []model.SnapshotEntry) error
	// Erase removes the persisted snapshot entirely.
	Erase(ctx context.Context) error
}

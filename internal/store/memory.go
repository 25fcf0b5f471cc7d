package store

import (
	"context"
	"sync"

	"github.com/linkmap/linkmap/internal/model"
)

// Memory keeps the snapshot in process memory. Used by tests and by the
// memory backend, where durability across restarts is not wanted.
type Memory struct {
	mu      sync.Mutex
	entries []model.SnapshotEntry
	saved   bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) ([]model.SnapshotEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return nil, nil
	}
	out := make([]model.SnapshotEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *Memory) Save(_ context.Context, entries []model.SnapshotEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]model.SnapshotEntry, len(entries))
	copy(m.entries, entries)
	m.saved = true
	return nil
}

func (m *Memory) Erase(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.saved = false
	return nil
}

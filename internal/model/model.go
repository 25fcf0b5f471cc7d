package model

import (
	"time"
)

// Mapping associates a short code with a destination URL for a validity
// window, together with its recorded click history.
type Mapping struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CustomCode  bool      `json:"custom_code"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	// Expired is a cached flag refreshed on read paths. The authoritative
	// answer is always a time comparison against ExpiresAt.
	Expired     bool    `json:"is_expired"`
	Clicks      []Click `json:"clicks"`
	TotalClicks int     `json:"total_clicks"`
}

// ExpiredAt reports whether the mapping is past its validity window at t.
func (m *Mapping) ExpiredAt(t time.Time) bool {
	return t.After(m.ExpiresAt)
}

// Clone returns a deep copy so callers never hold a mutable reference into
// registry-owned state.
func (m *Mapping) Clone() *Mapping {
	cp := *m
	cp.Clicks = make([]Click, len(m.Clicks))
	copy(cp.Clicks, m.Clicks)
	return &cp
}

// Click is one recorded resolution event against a live mapping.
type Click struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// SnapshotEntry is the persisted unit: one (id, mapping) pair. The snapshot
// is an ordered sequence of these, overwritten whole on every save.
type SnapshotEntry struct {
	ID      string  `json:"id"`
	Mapping Mapping `json:"mapping"`
}

// ClickEvent is the wire form published to the analytics queue.
type ClickEvent struct {
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
	UserAgent string    `json:"user_agent"`
}

// CodeStats is the aggregated per-code click count maintained by the
// analytics worker.
type CodeStats struct {
	ID         int64  `gorm:"primaryKey" json:"-"`
	ShortCode  string `gorm:"type:varchar(20);uniqueIndex;not null" json:"short_code"`
	ClickCount int64  `gorm:"not null" json:"click_count"`
}

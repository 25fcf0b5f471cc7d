// Package registry is the single source of truth for short-code mappings:
// it assigns unique codes, evaluates expiry lazily on reads, records clicks
// and drives snapshot persistence.
package registry

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkmap/linkmap/internal/events"
	"github.com/linkmap/linkmap/internal/geo"
	"github.com/linkmap/linkmap/internal/model"
	storage "github.com/linkmap/linkmap/internal/store"
)

const (
	// DefaultValidity applies when a create request carries no validity.
	DefaultValidity = 30 * time.Minute

	autoCodeLength     = 6
	fallbackCodeLength = 8
	maxDrawAttempts    = 100
)

// CreateRequest is the input to Create. ValidityMinutes of zero means
// unspecified; negative values are accepted verbatim, producing an already
// expired mapping. Bounds are an upstream concern.
type CreateRequest struct {
	OriginalURL     string
	ValidityMinutes int
	CustomCode      string
}

// Access carries click-time context for RecordAccessAndResolve.
type Access struct {
	Source     string
	UserAgent  string
	RemoteAddr string
}

// Registry owns all mappings exclusively. Every public operation runs in
// one critical section covering the in-memory mutation and the snapshot
// save, so concurrent callers never observe a half-applied operation.
type Registry struct {
	mu       sync.Mutex
	mappings map[string]*model.Mapping

	store storage.Store
	geo   geo.Resolver
	pub   events.Publisher
	log   *slog.Logger

	// Injection points for tests.
	now  func() time.Time
	draw func(n int) (string, error)
}

// New builds a registry and loads the last snapshot. A missing or unreadable
// snapshot is not fatal: the registry starts empty and logs a warning.
func New(ctx context.Context, st storage.Store, res geo.Resolver, pub events.Publisher, log *slog.Logger) *Registry {
	if res == nil {
		res = geo.NewStub()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		mappings: make(map[string]*model.Mapping),
		store:    st,
		geo:      res,
		pub:      pub,
		log:      log,
		now:      time.Now,
		draw:     randomCode,
	}

	entries, err := st.Load(ctx)
	if err != nil {
		log.Warn("snapshot load failed, starting empty", "err", err)
		return r
	}
	for _, e := range entries {
		m := e.Mapping
		r.mappings[e.ID] = &m
	}
	if len(entries) > 0 {
		log.Info("snapshot loaded", "mappings", len(entries))
	}
	return r
}

// Create validates the request, assigns a unique code and stores the new
// mapping. The returned mapping is a copy; registry state is never handed
// out by reference.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*model.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := url.Parse(req.OriginalURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		r.log.Warn("create rejected", "reason", "invalid url", "url", req.OriginalURL)
		return nil, ErrInvalidURL
	}

	custom := req.CustomCode != ""
	var code string
	if custom {
		if !codePattern.MatchString(req.CustomCode) {
			r.log.Warn("create rejected", "reason", "invalid short code", "code", req.CustomCode)
			return nil, ErrInvalidShortCode
		}
		if r.codeExistsLocked(req.CustomCode) {
			r.log.Warn("create rejected", "reason", "short code taken", "code", req.CustomCode)
			return nil, ErrShortCodeTaken
		}
		code = req.CustomCode
	} else {
		code, err = r.drawCodeLocked()
		if err != nil {
			return nil, err
		}
	}

	validity := DefaultValidity
	if req.ValidityMinutes != 0 {
		validity = time.Duration(req.ValidityMinutes) * time.Minute
	}

	now := r.now()
	m := &model.Mapping{
		ID:          uuid.NewString(),
		OriginalURL: req.OriginalURL,
		ShortCode:   code,
		CustomCode:  custom,
		CreatedAt:   now,
		ExpiresAt:   now.Add(validity),
		Clicks:      []model.Click{},
	}
	r.mappings[m.ID] = m
	r.persistLocked(ctx, "create")

	r.log.Info("mapping created",
		"id", m.ID, "code", code, "custom", custom,
		"expires_at", m.ExpiresAt)
	return m.Clone(), nil
}

// Lookup returns the live mapping for code. An expired mapping gets its
// cached expired flag written back and is reported as not found: expiry
// hides a mapping but its code stays occupied.
func (r *Registry) Lookup(ctx context.Context, code string) (*model.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookupLocked(ctx, code)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// RecordAccessAndResolve resolves a live code, appends exactly one click and
// returns the destination URL. The click event is handed to the publisher
// after the critical section; delivery is best-effort.
func (r *Registry) RecordAccessAndResolve(ctx context.Context, code string, acc Access) (string, error) {
	dest, ev, err := r.recordAccess(ctx, code, acc)
	if err != nil {
		return "", err
	}
	if err := r.pub.Publish(ctx, ev); err != nil {
		r.log.Warn("click event publish failed", "code", code, "err", err)
	}
	return dest, nil
}

func (r *Registry) recordAccess(ctx context.Context, code string, acc Access) (string, model.ClickEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookupLocked(ctx, code)
	if err != nil {
		return "", model.ClickEvent{}, err
	}

	source := acc.Source
	if source == "" {
		source = "direct"
	}
	loc := r.geo.Resolve(acc.RemoteAddr)

	click := model.Click{
		ID:        uuid.NewString(),
		Timestamp: r.now(),
		Source:    source,
		Location:  loc.Country,
		UserAgent: acc.UserAgent,
	}
	m.Clicks = append(m.Clicks, click)
	m.TotalClicks = len(m.Clicks)
	r.persistLocked(ctx, "record access")

	r.log.Info("click recorded",
		"code", code, "source", source, "total_clicks", m.TotalClicks)

	ev := model.ClickEvent{
		ShortCode: m.ShortCode,
		Timestamp: click.Timestamp,
		Source:    click.Source,
		Location:  click.Location,
		UserAgent: click.UserAgent,
	}
	return m.OriginalURL, ev, nil
}

// ListAll returns every mapping, most recent first, refreshing the cached
// expired flag of each before returning.
func (r *Registry) ListAll(ctx context.Context) []*model.Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]*model.Mapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		m.Expired = m.ExpiredAt(now)
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	r.persistLocked(ctx, "list")

	r.log.Info("mappings listed", "count", len(out))
	return out
}

// Delete removes the mapping with the given id and reports whether a
// removal occurred. Unlike expiry, deletion frees the code for reuse.
func (r *Registry) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mappings[id]; !ok {
		r.log.Warn("delete miss", "id", id)
		return false
	}
	delete(r.mappings, id)
	r.persistLocked(ctx, "delete")

	r.log.Info("mapping deleted", "id", id)
	return true
}

// Clear removes all mappings and erases the persisted snapshot.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mappings = make(map[string]*model.Mapping)
	if err := r.store.Erase(ctx); err != nil {
		r.log.Warn("snapshot erase failed", "err", err)
	}
	r.log.Info("registry cleared")
}

// lookupLocked scans for a live mapping by code. Callers hold the lock.
func (r *Registry) lookupLocked(ctx context.Context, code string) (*model.Mapping, error) {
	var found *model.Mapping
	for _, m := range r.mappings {
		if m.ShortCode == code {
			found = m
			break
		}
	}
	if found == nil {
		r.log.Warn("lookup miss", "code", code)
		return nil, ErrNotFound
	}
	if found.ExpiredAt(r.now()) {
		if !found.Expired {
			found.Expired = true
			r.persistLocked(ctx, "expire")
		}
		r.log.Info("lookup hit expired mapping", "code", code, "expired_at", found.ExpiresAt)
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *Registry) codeExistsLocked(code string) bool {
	for _, m := range r.mappings {
		if m.ShortCode == code {
			return true
		}
	}
	return false
}

// drawCodeLocked implements the two-phase generation policy: up to 100
// six-character draws, then a single eight-character draw accepted without
// a collision check. The residual collision risk at length eight is
// accepted rather than looping unboundedly.
func (r *Registry) drawCodeLocked() (string, error) {
	for i := 0; i < maxDrawAttempts; i++ {
		code, err := r.draw(autoCodeLength)
		if err != nil {
			return "", err
		}
		if !r.codeExistsLocked(code) {
			return code, nil
		}
	}
	r.log.Warn("short code draws exhausted, falling back to longer code",
		"attempts", maxDrawAttempts, "length", fallbackCodeLength)
	return r.draw(fallbackCodeLength)
}

// persistLocked overwrites the snapshot with the current state. Failures
// are logged and swallowed: the in-memory registry stays authoritative.
func (r *Registry) persistLocked(ctx context.Context, op string) {
	entries := make([]model.SnapshotEntry, 0, len(r.mappings))
	for id, m := range r.mappings {
		entries = append(entries, model.SnapshotEntry{ID: id, Mapping: *m})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Mapping.CreatedAt.Before(entries[j].Mapping.CreatedAt)
	})
	if err := r.store.Save(ctx, entries); err != nil {
		r.log.Warn("snapshot save failed", "op", op, "err", err)
	}
}

package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/session-availability-go/availability/batchedit"
)

// EditRegistry keeps the open edit sessions of the API between requests.
// An edit expires when it was not used for longer than the TTL.
//
// Calls on the same edit are serialized, an EditSession itself is not safe for concurrent use.
type EditRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]*registryEntry
}

type registryEntry struct {
	mu       sync.Mutex
	edit     *batchedit.EditSession
	lastUsed time.Time
}

// NewEditRegistry creates a registry. A nil clock means time.Now.
func NewEditRegistry(ttl time.Duration, now func() time.Time) *EditRegistry {
	if now == nil {
		now = time.Now
	}

	return &EditRegistry{
		ttl:     ttl,
		now:     now,
		entries: make(map[uuid.UUID]*registryEntry),
	}
}

// Add registers an edit under its id.
func (r *EditRegistry) Add(edit *batchedit.EditSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[edit.ID()] = &registryEntry{edit: edit, lastUsed: r.now()}
}

// Use runs fn with exclusive access to the edit. Edits that are no longer Editing afterwards
// are dropped from the registry. Returns ErrEditNotFound for unknown or expired ids.
func (r *EditRegistry) Use(id uuid.UUID, fn func(edit *batchedit.EditSession) error) error {
	entry, err := r.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	fnErr := fn(entry.edit)

	if !entry.edit.IsEditing() {
		r.remove(id)
	}

	return fnErr
}

func (r *EditRegistry) lookup(id uuid.UUID) (*registryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrEditNotFound
	}

	now := r.now()
	if r.expired(entry, now) {
		delete(r.entries, id)
		return nil, ErrEditNotFound
	}

	entry.lastUsed = now

	return entry, nil
}

func (r *EditRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

func (r *EditRegistry) expired(entry *registryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.lastUsed) > r.ttl
}

// EvictExpired removes all expired edits and returns how many were removed.
func (r *EditRegistry) EvictExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0

	for id, entry := range r.entries {
		if r.expired(entry, now) {
			delete(r.entries, id)
			evicted++
		}
	}

	return evicted
}

// Len returns the number of registered edits, expired ones included until they are evicted.
func (r *EditRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// RunEviction calls EvictExpired every interval until ctx is done.
func (r *EditRegistry) RunEviction(ctx context.Context, interval time.Duration, onEvicted func(count int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count := r.EvictExpired(); count > 0 && onEvicted != nil {
				onEvicted(count)
			}
		}
	}
}

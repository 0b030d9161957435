package repository

import (
	"context"
	"sync"
	"time"

	"pmconsole/internal/models"
)

type markerEntry struct {
	marker    models.NewBookingMarker
	expiresAt time.Time
}

// MemoryMarkerStore keeps markers in process. It backs the Redis store when
// Redis is down and serves alone in single-instance deployments.
type MemoryMarkerStore struct {
	mu      sync.Mutex
	markers map[string]markerEntry
	now     func() time.Time
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{
		markers: make(map[string]markerEntry),
		now:     time.Now,
	}
}

func (r *MemoryMarkerStore) PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := markerEntry{marker: marker}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.markers[owner] = entry
	r.sweep()
	return nil
}

func (r *MemoryMarkerStore) TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.markers[owner]
	if !ok {
		return nil, nil
	}
	delete(r.markers, owner)
	if r.expired(entry) {
		return nil, nil
	}
	marker := entry.marker
	return &marker, nil
}

func (r *MemoryMarkerStore) expired(e markerEntry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}

// sweep drops expired markers of owners who never listed again. Callers
// hold mu.
func (r *MemoryMarkerStore) sweep() {
	for owner, entry := range r.markers {
		if r.expired(entry) {
			delete(r.markers, owner)
		}
	}
}

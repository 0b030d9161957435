package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pmconsole/internal/domain"
	"pmconsole/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverMarkerStore writes to the primary store and switches to the
// fallback after the first primary error, retrying the primary once a minute.
type FailoverMarkerStore struct {
	primary  domain.MarkerStore
	fallback domain.MarkerStore
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverMarkerStore(primary, fallback domain.MarkerStore, logger *zerolog.Logger) *FailoverMarkerStore {
	return &FailoverMarkerStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverMarkerStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary marker store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether the primary may be retried while down.
func (r *FailoverMarkerStore) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) <= recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverMarkerStore) PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error {
	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.PutMarker(ctx, owner, marker, ttl)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary marker store recovered")
			}
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.PutMarker(ctx, owner, marker, ttl)
}

// TakeMarker checks the primary first and then the fallback, so a marker
// written during an outage is still delivered after recovery.
func (r *FailoverMarkerStore) TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		marker, err := r.primary.TakeMarker(ctx, owner)
		if err == nil {
			r.isDown.Store(false)
			if marker != nil {
				return marker, nil
			}
			return r.fallback.TakeMarker(ctx, owner)
		}
		r.markDown(err)
	}

	return r.fallback.TakeMarker(ctx, owner)
}

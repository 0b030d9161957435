package refresh

import (
	"context"
	"sync"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/domain"
	"pmconsole/internal/events"
	"pmconsole/internal/logging"
	"pmconsole/internal/metrics"
	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/rs/zerolog"
)

// Coordinator makes a freshly created booking show up in the owner's
// reservation list. It leaves a marker for the next listing, announces the
// booking once, then refetches page 1 until the booking is visible or the
// retry budget is spent.
type Coordinator struct {
	markers      domain.MarkerStore
	publisher    domain.EventPublisher
	fetcher      domain.ReservationFetcher
	policy       RetryPolicy
	initialDelay time.Duration
	pageSize     int
	markerTTL    time.Duration
	logger       *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*confirmation
}

type confirmation struct {
	cancel context.CancelFunc
}

func NewCoordinator(
	cfg config.RefreshConfig,
	markers domain.MarkerStore,
	publisher domain.EventPublisher,
	fetcher domain.ReservationFetcher,
	logger *zerolog.Logger,
) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	c := &Coordinator{
		markers:      markers,
		publisher:    publisher,
		fetcher:      fetcher,
		policy:       PolicyFromConfig(cfg),
		initialDelay: cfg.InitialDelay(),
		pageSize:     pageSize,
		markerTTL:    cfg.MarkerTTL(),
		logger:       logging.Component(logger, "refresh"),
		ctx:          ctx,
		cancel:       cancel,
		pending:      make(map[string]*confirmation),
	}
	c.logger.Info().
		Dur("initial_delay", c.initialDelay).
		Durs("retry_schedule", c.policy.Schedule()).
		Int("page_size", c.pageSize).
		Msg("refresh coordinator started")
	return c
}

// BookingCreated is called once per accepted booking. It returns after the
// marker is stored and the event published; confirmation runs in the
// background.
func (c *Coordinator) BookingCreated(ctx context.Context, token string, marker models.NewBookingMarker) {
	owner := session.Subject(token)
	log := c.logger.With().Str("owner", owner).Str("booking_id", marker.BookingID).Logger()

	if c.markers != nil {
		if err := c.markers.PutMarker(ctx, owner, marker, c.markerTTL); err != nil {
			log.Warn().Err(err).Msg("store new booking marker")
		}
	}
	c.publish(owner, events.EventBookingCreated, events.BookingCreatedPayload{Owner: owner, Marker: marker})

	if c.fetcher == nil || c.ctx.Err() != nil {
		return
	}

	confirmCtx, cancel := context.WithCancel(c.ctx)
	conf := &confirmation{cancel: cancel}

	c.mu.Lock()
	// a newer booking supersedes the older confirm loop: its refetch
	// replaces the same list
	if prev, ok := c.pending[owner]; ok {
		prev.cancel()
	}
	c.pending[owner] = conf
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.release(owner, conf)
		c.confirm(confirmCtx, token, owner, marker.BookingID)
	}()
}

func (c *Coordinator) release(owner string, conf *confirmation) {
	conf.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[owner] == conf {
		delete(c.pending, owner)
	}
}

func (c *Coordinator) confirm(ctx context.Context, token, owner, bookingID string) {
	wait := c.initialDelay
	attempts := 0

	for {
		if !sleep(ctx, wait) {
			metrics.IncRefresh("cancelled")
			return
		}
		attempts++

		page := c.fetcher.FetchReservations(ctx, token, 1, c.pageSize)
		if page.Success && containsBooking(page, bookingID) {
			metrics.IncRefresh("confirmed")
			c.logger.Debug().Str("booking_id", bookingID).Int("attempts", attempts).Msg("booking visible in list")
			c.publish(owner, events.EventReservationsConfirmed, events.RefreshPayload{
				Owner: owner, BookingID: bookingID, Attempts: attempts, Found: true,
			})
			return
		}

		if attempts > c.policy.MaxRetries {
			metrics.IncRefresh("stale")
			c.logger.Warn().Str("booking_id", bookingID).Int("attempts", attempts).Msg("booking not visible after retries")
			c.publish(owner, events.EventReservationsStale, events.RefreshPayload{
				Owner: owner, BookingID: bookingID, Attempts: attempts,
			})
			return
		}
		wait = c.policy.NextDelay(attempts)
	}
}

func (c *Coordinator) publish(owner, eventType string, payload interface{}) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishFor(owner, eventType, payload); err != nil {
		c.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event")
	}
}

// Pending returns the number of running confirm loops.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop cancels every confirm loop and waits for them to exit.
func (c *Coordinator) Stop() {
	c.cancel()
	c.wg.Wait()
}

func containsBooking(page models.ReservationPage, bookingID string) bool {
	for _, r := range page.Data {
		if r.ID == bookingID || (r.BookingID != nil && *r.BookingID == bookingID) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

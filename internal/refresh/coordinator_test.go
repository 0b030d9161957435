package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/events"
	"pmconsole/internal/models"
	"pmconsole/internal/repository"
	"pmconsole/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "opaque-owner-token"

// scriptedFetcher returns the booking only from the given attempt on.
type scriptedFetcher struct {
	mu        sync.Mutex
	calls     int
	visibleAt int
	bookingID string
}

func (f *scriptedFetcher) FetchReservations(_ context.Context, tok string, page, pageSize int) models.ReservationPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if tok != token || page != 1 {
		return models.FailedPage("unexpected call", page, pageSize)
	}
	res := models.ReservationPage{Success: true, Data: []models.Reservation{{ID: "older"}}}
	if f.visibleAt > 0 && f.calls >= f.visibleAt {
		id := f.bookingID
		res.Data = append(res.Data, models.Reservation{ID: "row", BookingID: &id})
	}
	return res
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorded struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorded) handler(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *recorded) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorded) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func fastConfig(retries int) config.RefreshConfig {
	return config.RefreshConfig{
		InitialDelayMillis: 1,
		BackoffMillis:      1,
		MaxBackoffMillis:   5,
		BackoffFactor:      2,
		MaxRetries:         retries,
		PageSize:           10,
		MarkerTTLSeconds:   60,
	}
}

func newHarness(t *testing.T, cfg config.RefreshConfig, fetcher *scriptedFetcher) (*Coordinator, *repository.MemoryMarkerStore, *recorded) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	bus := events.NewEventBus()
	rec := &recorded{}
	bus.SubscribeAll(rec.handler)
	markers := repository.NewMemoryMarkerStore()

	c := NewCoordinator(cfg, markers, bus, fetcher, &logger)
	t.Cleanup(c.Stop)
	return c, markers, rec
}

func TestCoordinatorLogsRetrySchedule(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	c := NewCoordinator(fastConfig(4), nil, nil, nil, &logger)
	t.Cleanup(c.Stop)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "refresh coordinator started", line["message"])
	assert.Equal(t, []any{1.0, 2.0, 4.0, 5.0}, line["retry_schedule"])
	assert.Equal(t, 1.0, line["initial_delay"])
}

func TestCoordinatorConfirmsAfterRetries(t *testing.T) {
	fetcher := &scriptedFetcher{visibleAt: 3, bookingID: "BK-1"}
	c, markers, rec := newHarness(t, fastConfig(4), fetcher)

	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-1", PropertyID: "P1"})

	// marker and announcement happen before BookingCreated returns
	types := rec.types()
	require.NotEmpty(t, types)
	assert.Equal(t, events.EventBookingCreated, types[0])
	rec.mu.Lock()
	assert.Equal(t, session.Subject(token), rec.events[0].Owner)
	rec.mu.Unlock()

	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Equal(t, []string{events.EventBookingCreated, events.EventReservationsConfirmed}, rec.types())

	var payload events.RefreshPayload
	require.NoError(t, json.Unmarshal(rec.last().Payload, &payload))
	assert.True(t, payload.Found)
	assert.Equal(t, 3, payload.Attempts)

	marker, err := markers.TakeMarker(context.Background(), session.Subject(token))
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, "BK-1", marker.BookingID)
}

func TestCoordinatorGivesUp(t *testing.T) {
	fetcher := &scriptedFetcher{}
	c, _, rec := newHarness(t, fastConfig(2), fetcher)

	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-2"})

	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Equal(t, []string{events.EventBookingCreated, events.EventReservationsStale}, rec.types())
}

func TestCoordinatorEventNeverCarriesToken(t *testing.T) {
	fetcher := &scriptedFetcher{visibleAt: 1, bookingID: "BK-3"}
	c, _, rec := newHarness(t, fastConfig(0), fetcher)

	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-3"})
	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, e := range rec.events {
		assert.NotContains(t, string(e.Payload), token)
	}
}

func TestCoordinatorStopCancelsPending(t *testing.T) {
	cfg := fastConfig(1)
	cfg.InitialDelayMillis = int(time.Hour / time.Millisecond)
	fetcher := &scriptedFetcher{}
	c, _, rec := newHarness(t, cfg, fetcher)

	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-4"})
	assert.Equal(t, 1, c.Pending())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Equal(t, 0, fetcher.Calls())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, []string{events.EventBookingCreated}, rec.types())

	// after Stop only the marker and announcement happen
	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-5"})
	assert.Equal(t, 0, c.Pending())
}

func TestCoordinatorNewerBookingSupersedes(t *testing.T) {
	cfg := fastConfig(0)
	cfg.InitialDelayMillis = 50
	fetcher := &scriptedFetcher{visibleAt: 1, bookingID: "BK-7"}
	c, _, rec := newHarness(t, cfg, fetcher)

	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-6"})
	c.BookingCreated(context.Background(), token, models.NewBookingMarker{BookingID: "BK-7"})

	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fetcher.Calls())
	assert.Equal(t, []string{
		events.EventBookingCreated,
		events.EventBookingCreated,
		events.EventReservationsConfirmed,
	}, rec.types())
}

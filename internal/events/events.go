package events

import (
	"encoding/json"
	"sync"
	"time"

	"pmconsole/internal/models"

	"github.com/google/uuid"
)

const (
	EventBookingCreated        = "booking_created"
	EventReservationsConfirmed = "reservations_confirmed"
	EventReservationsStale     = "reservations_stale"
)

// BookingCreatedPayload is published once the backend accepted a booking.
// Owner is the session subject, never the token itself.
type BookingCreatedPayload struct {
	Owner  string                  `json:"owner"`
	Marker models.NewBookingMarker `json:"booking"`
}

// RefreshPayload reports how the post-booking refetch ended.
type RefreshPayload struct {
	Owner     string `json:"owner"`
	BookingID string `json:"bookingId"`
	Attempts  int    `json:"attempts"`
	Found     bool   `json:"found"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Owner     string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	all         []EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish notifies subscribers of the event type. Every handler runs; their
// errors are collected for the caller.
func (b *EventBus) Publish(event *Event) []error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// PublishJSON serializes the payload and publishes an event without an owner.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	return b.PublishFor("", eventType, payload)
}

// PublishFor serializes the payload and publishes an event addressed to one
// owner. Handler failures do not fail the publish.
func (b *EventBus) PublishFor(owner, eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	event.Owner = owner

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

package domain

import (
	"context"
	"time"

	"pmconsole/internal/backend"
	"pmconsole/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Backend performs one authenticated call to the property backend.
type Backend interface {
	Do(ctx context.Context, token string, req backend.Request) (any, error)
}

// PropertyLookup backfills reservation titles and unit numbers.
type PropertyLookup interface {
	PropertyDetails(ctx context.Context, token, propertyID string) models.Result[map[string]any]
}

// ReservationFetcher reads a reservations page without consuming the marker.
type ReservationFetcher interface {
	FetchReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage
}

// BookingNotifier is told about every booking the backend accepted.
type BookingNotifier interface {
	BookingCreated(ctx context.Context, token string, marker models.NewBookingMarker)
}

// MarkerStore keeps the owner's fresh-booking marker until the next listing.
type MarkerStore interface {
	PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error
	TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error)
}

// EventPublisher publishes an event addressed to one owner.
type EventPublisher interface {
	PublishFor(owner, eventType string, payload interface{}) error
}

// TelegramSender is the part of *tgbotapi.BotAPI the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type NoteAdder interface {
	AddNote(ctx context.Context, token, reservationID, text string) models.Result[models.Note]
}

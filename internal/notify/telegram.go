package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pmconsole/internal/domain"
	"pmconsole/internal/events"
	"pmconsole/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier tells the operations chats about bookings made from the
// console.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logging.Component(logger, "telegram"),
	}
}

// Attach subscribes the notifier to booking events.
func (n *TelegramNotifier) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.HandleBookingCreated)
	bus.Subscribe(events.EventReservationsStale, n.HandleStale)
}

func (n *TelegramNotifier) HandleBookingCreated(event *events.Event) error {
	var payload events.BookingCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	return n.broadcast(bookingText(payload))
}

func (n *TelegramNotifier) HandleStale(event *events.Event) error {
	var payload events.RefreshPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	text := fmt.Sprintf("⚠️ Booking %s is still missing from the reservations list after %d checks.",
		escape(payload.BookingID), payload.Attempts)
	return n.broadcast(text)
}

func (n *TelegramNotifier) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	return n.bot.Send(msg)
}

// broadcast sends to every chat; one failing chat does not stop the others.
func (n *TelegramNotifier) broadcast(text string) error {
	var errs []error
	for _, chatID := range n.chatIDs {
		if _, err := n.SendMarkdown(chatID, text); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send telegram notification")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func bookingText(p events.BookingCreatedPayload) string {
	m := p.Marker
	var b strings.Builder
	b.WriteString("🏠 *New booking*\n")
	fmt.Fprintf(&b, "Property: %s (%s)\n", escape(m.PropertyTitle), escape(m.UnitNo))
	if m.GuestName != "" {
		fmt.Fprintf(&b, "Guest: %s\n", escape(m.GuestName))
	}
	fmt.Fprintf(&b, "Dates: %s → %s\n", m.CheckIn, m.CheckOut)
	fmt.Fprintf(&b, "Booking ID: %s", escape(m.BookingID))
	return b.String()
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

package notify

import (
	"errors"
	"io"
	"strings"
	"testing"

	"pmconsole/internal/events"
	"pmconsole/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestTelegramNotifier(t *testing.T) {
	logger := zerolog.New(io.Discard)
	mockSender := new(mockTelegramSender)
	notifier := NewTelegramNotifier(mockSender, []int64{11, 22}, &logger)

	bus := events.NewEventBus()
	notifier.Attach(bus)

	t.Run("BookingCreated", func(t *testing.T) {
		for _, chatID := range []int64{11, 22} {
			chatID := chatID
			mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
				msg, ok := c.(tgbotapi.MessageConfig)
				return ok && msg.ChatID == chatID &&
					msg.ParseMode == tgbotapi.ModeMarkdown &&
					strings.Contains(msg.Text, "New booking") &&
					strings.Contains(msg.Text, "Sea View") &&
					strings.Contains(msg.Text, "2025-06-10 → 2025-06-12") &&
					strings.Contains(msg.Text, "BK-1")
			})).Return(tgbotapi.Message{}, nil).Once()
		}

		require.NoError(t, bus.PublishFor("owner", events.EventBookingCreated, events.BookingCreatedPayload{
			Owner: "owner",
			Marker: models.NewBookingMarker{
				BookingID:     "BK-1",
				PropertyTitle: "Sea View",
				UnitNo:        "12",
				GuestName:     "Sara Ali",
				CheckIn:       "2025-06-10",
				CheckOut:      "2025-06-12",
			},
		}))
		mockSender.AssertExpectations(t)
	})

	t.Run("OneChatFails", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			return c.(tgbotapi.MessageConfig).ChatID == 11
		})).Return(tgbotapi.Message{}, errors.New("chat not found")).Once()
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			return c.(tgbotapi.MessageConfig).ChatID == 22
		})).Return(tgbotapi.Message{}, nil).Once()

		event, err := events.NewJSONEvent(events.EventReservationsStale, events.RefreshPayload{BookingID: "BK_2", Attempts: 5})
		require.NoError(t, err)

		err = notifier.HandleStale(&event)
		assert.Error(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("BadPayload", func(t *testing.T) {
		err := notifier.HandleBookingCreated(&events.Event{Type: events.EventBookingCreated, Payload: []byte("{")})
		assert.Error(t, err)
	})
}

func TestBookingTextEscapesMarkdown(t *testing.T) {
	text := bookingText(events.BookingCreatedPayload{Marker: models.NewBookingMarker{
		BookingID:     "BK_1",
		PropertyTitle: "*Loft*",
		UnitNo:        "Unit #",
	}})
	assert.Contains(t, text, `\*Loft\*`)
	assert.Contains(t, text, `BK\_1`)
	assert.NotContains(t, text, "Guest:")
}

package api

import (
	"context"
	"io"
	"testing"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/models"
	"pmconsole/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

const testToken = "tok-owner"

// mockConsole stands in for every service behind the HTTP surface.
type mockConsole struct {
	mock.Mock
}

func (m *mockConsole) CheckAvailability(ctx context.Context, token string, q models.RatePlanQuery) (models.Result[*models.RatePlanResult], service.Decision) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(models.Result[*models.RatePlanResult]), args.Get(1).(service.Decision)
}

func (m *mockConsole) ListReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage {
	return m.Called(ctx, token, page, pageSize).Get(0).(models.ReservationPage)
}

func (m *mockConsole) FetchReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage {
	return m.Called(ctx, token, page, pageSize).Get(0).(models.ReservationPage)
}

func (m *mockConsole) AddNote(ctx context.Context, token, reservationID, text string) models.Result[models.Note] {
	return m.Called(ctx, token, reservationID, text).Get(0).(models.Result[models.Note])
}

func (m *mockConsole) SubmitBooking(ctx context.Context, token string, draft models.BookingDraft) models.Result[*models.BookingConfirmation] {
	return m.Called(ctx, token, draft).Get(0).(models.Result[*models.BookingConfirmation])
}

func (m *mockConsole) ListProperties(ctx context.Context, token string) models.Result[[]map[string]any] {
	return m.Called(ctx, token).Get(0).(models.Result[[]map[string]any])
}

func (m *mockConsole) Cities(ctx context.Context, token string) models.Result[[]string] {
	return m.Called(ctx, token).Get(0).(models.Result[[]string])
}

func (m *mockConsole) Neighbourhoods(ctx context.Context, token string) models.Result[[]string] {
	return m.Called(ctx, token).Get(0).(models.Result[[]string])
}

func (m *mockConsole) PropertyDetails(ctx context.Context, token, propertyID string) models.Result[map[string]any] {
	return m.Called(ctx, token, propertyID).Get(0).(models.Result[map[string]any])
}

func (m *mockConsole) BlockUnitDates(ctx context.Context, token, propertyID string, blocks []models.BlockDatesInput) models.Result[map[string]any] {
	return m.Called(ctx, token, propertyID, blocks).Get(0).(models.Result[map[string]any])
}

func (m *mockConsole) Subscriptions(ctx context.Context, token string) models.Result[any] {
	return m.Called(ctx, token).Get(0).(models.Result[any])
}

func (m *mockConsole) Plans(ctx context.Context, token string) models.Result[any] {
	return m.Called(ctx, token).Get(0).(models.Result[any])
}

func (m *mockConsole) Discounts(ctx context.Context, token string) models.Result[any] {
	return m.Called(ctx, token).Get(0).(models.Result[any])
}

func (m *mockConsole) Cards(ctx context.Context, token string) models.Result[any] {
	return m.Called(ctx, token).Get(0).(models.Result[any])
}

func (m *mockConsole) VerifyDiscount(ctx context.Context, token, userID string) models.Result[any] {
	return m.Called(ctx, token, userID).Get(0).(models.Result[any])
}

func (m *mockConsole) SubscribePremium(ctx context.Context, token string, req models.PremiumSubscription) models.Result[any] {
	return m.Called(ctx, token, req).Get(0).(models.Result[any])
}

func (m *mockConsole) CancellationDetails(ctx context.Context, token, propertyID string) models.Result[any] {
	return m.Called(ctx, token, propertyID).Get(0).(models.Result[any])
}

func (m *mockConsole) CancelSubscription(ctx context.Context, token, propertyID string, confirmed bool) models.Result[any] {
	return m.Called(ctx, token, propertyID, confirmed).Get(0).(models.Result[any])
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		HTTP:           config.APIHTTPConfig{Port: 0},
		AllowedOrigins: []string{"*"},
	}
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig, m *mockConsole, tweak func(*Services)) *HTTPServer {
	t.Helper()
	svc := Services{
		RatePlans:    m,
		Reservations: m,
		Bookings:     m,
		Properties:   m,
		Billing:      m,
	}
	if tweak != nil {
		tweak(&svc)
	}
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(cfg, svc, &logger)
	srv.now = func() time.Time { return time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC) }
	return srv
}

package service

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"pmconsole/internal/backend"
	"pmconsole/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-owner"

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Do(ctx context.Context, token string, req backend.Request) (any, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0), args.Error(1)
}

// path matches a request by method and path.
func path(method, p string) interface{} {
	return mock.MatchedBy(func(r backend.Request) bool {
		return r.Method == method && r.Path == p
	})
}

// raw decodes a JSON literal the way the backend client does.
func raw(t *testing.T, body string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) PropertyDetails(ctx context.Context, token, propertyID string) models.Result[map[string]any] {
	return m.Called(ctx, token, propertyID).Get(0).(models.Result[map[string]any])
}

type mockMarkers struct {
	mock.Mock
}

func (m *mockMarkers) PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error {
	return m.Called(ctx, owner, marker, ttl).Error(0)
}

func (m *mockMarkers) TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NewBookingMarker), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BookingCreated(ctx context.Context, token string, marker models.NewBookingMarker) {
	m.Called(ctx, token, marker)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"pmconsole/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error {
	args := m.Called(ctx, owner, marker, ttl)
	return args.Error(0)
}

func (m *mockStore) TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NewBookingMarker), args.Error(1)
}

func TestFailoverMarkerStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverMarkerStore(primary, fallback, &logger)
	ctx := context.Background()
	marker := models.NewBookingMarker{BookingID: "BK-1"}

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("PutMarker", ctx, "o1", marker, time.Minute).Return(nil).Once()

		err := repo.PutMarker(ctx, "o1", marker, time.Minute)
		assert.NoError(t, err)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("TakeFromPrimary", func(t *testing.T) {
		primary.On("TakeMarker", ctx, "o1").Return(&marker, nil).Once()

		got, err := repo.TakeMarker(ctx, "o1")
		assert.NoError(t, err)
		assert.Equal(t, &marker, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("PutMarker", ctx, "o2", marker, time.Minute).Return(errors.New("fail")).Once()
		fallback.On("PutMarker", ctx, "o2", marker, time.Minute).Return(nil).Once()

		err := repo.PutMarker(ctx, "o2", marker, time.Minute)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDown", func(t *testing.T) {
		fallback.On("TakeMarker", ctx, "o2").Return(&marker, nil).Once()

		got, err := repo.TakeMarker(ctx, "o2")
		assert.NoError(t, err)
		assert.Equal(t, &marker, got)
		primary.AssertNotCalled(t, "TakeMarker", ctx, "o2")
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("PutMarker", ctx, "o3", marker, time.Minute).Return(nil).Once()

		err := repo.PutMarker(ctx, "o3", marker, time.Minute)
		assert.NoError(t, err)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("TakeMarker", ctx, "o4").Return(nil, errors.New("still fail")).Once()
		fallback.On("TakeMarker", ctx, "o4").Return(nil, nil).Once()

		got, err := repo.TakeMarker(ctx, "o4")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("MarkerWrittenDuringOutage", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("TakeMarker", ctx, "o5").Return(nil, nil).Once()
		fallback.On("TakeMarker", ctx, "o5").Return(&marker, nil).Once()

		got, err := repo.TakeMarker(ctx, "o5")
		assert.NoError(t, err)
		assert.Equal(t, &marker, got)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

func TestFailoverWithRealStores(t *testing.T) {
	logger := zerolog.New(io.Discard)
	broken := new(mockStore)
	broken.On("PutMarker", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down"))
	memory := NewMemoryMarkerStore()

	repo := NewFailoverMarkerStore(broken, memory, &logger)
	ctx := context.Background()

	assert.NoError(t, repo.PutMarker(ctx, "owner", models.NewBookingMarker{BookingID: "BK-9"}, time.Minute))
	got, err := repo.TakeMarker(ctx, "owner")
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, "BK-9", got.BookingID)
	}
}

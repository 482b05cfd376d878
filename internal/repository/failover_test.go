package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"ratedesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRepo always errors, standing in for a dead Redis.
type failingRepo struct{}

func (f *failingRepo) GetState(ctx context.Context, operator string) (*models.CalendarState, error) {
	return nil, errors.New("primary down")
}

func (f *failingRepo) SetState(ctx context.Context, state *models.CalendarState) error {
	return errors.New("primary down")
}

func (f *failingRepo) ClearState(ctx context.Context, operator string) error {
	return errors.New("primary down")
}

func (f *failingRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, errors.New("primary down")
}

func TestFailoverFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(&failingRepo{}, fallback, &logger)
	ctx := context.Background()

	state := &models.CalendarState{Operator: "op-1", RoomID: 9}
	require.NoError(t, repo.SetState(ctx, state))

	got, err := repo.GetState(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.RoomID)

	allowed, err := repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, repo.ClearState(ctx, "op-1"))
	got, err = repo.GetState(ctx, "op-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailoverPrefersHealthyPrimary(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryStateRepository(time.Hour)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, &models.CalendarState{Operator: "op-2"}))

	// The write must have landed on the primary, not the fallback.
	got, err := primary.GetState(ctx, "op-2")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = fallback.GetState(ctx, "op-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

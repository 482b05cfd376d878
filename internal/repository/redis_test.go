package repository

import (
	"context"
	"testing"
	"time"

	"ratedesk/internal/jalali"
	"ratedesk/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		anchor := jalali.Date{Year: 1403, Month: 4, Day: 20}
		state := &models.CalendarState{
			Operator:    "op-1",
			RoomID:      12,
			BoardTypeID: 3,
			Month:       jalali.Date{Year: 1403, Month: 4, Day: 1},
			Anchor:      &anchor,
			Filter:      models.FilterSoldOut,
			Records: map[string]models.RateRecord{
				"2024-07-10": {Date: "2024-07-10", Price: 500000, Stock: 2},
			},
		}

		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, "op-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.RoomID, got.RoomID)
		assert.Equal(t, state.Filter, got.Filter)
		require.NotNil(t, got.Anchor)
		assert.Equal(t, anchor, *got.Anchor)
		assert.Equal(t, int64(500000), got.Records["2024-07-10"].Price)
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		state := &models.CalendarState{Operator: "op-2", RoomID: 1}
		require.NoError(t, repo.SetState(ctx, state))
		require.NoError(t, repo.ClearState(ctx, "op-2"))

		got, err := repo.GetState(ctx, "op-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("StateTTL", func(t *testing.T) {
		state := &models.CalendarState{Operator: "op-3"}
		require.NoError(t, repo.SetState(ctx, state))

		s.FastForward(2 * time.Hour)

		got, err := repo.GetState(ctx, "op-3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CheckRateLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "client-a", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := repo.CheckRateLimit(ctx, "client-a", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Window expiry resets the counter.
		s.FastForward(2 * time.Minute)
		allowed, err = repo.CheckRateLimit(ctx, "client-a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		nilRepo := NewRedisStateRepository(nil, time.Hour)
		_, err := nilRepo.GetState(ctx, "x")
		assert.Error(t, err)
		assert.Error(t, nilRepo.SetState(ctx, &models.CalendarState{Operator: "x"}))
		assert.Error(t, nilRepo.ClearState(ctx, "x"))
	})
}

func TestPing(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))

	s.Close()
	assert.Error(t, Ping(context.Background(), client))
}

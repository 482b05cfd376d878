package repository

import (
	"context"
	"sync/atomic"
	"time"

	"ratedesk/internal/domain"
	"ratedesk/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository routes to a primary repository and falls back
// to a secondary when the primary errors, probing for recovery once a
// minute. Losing a session to the memory fallback is acceptable; losing
// the whole admin tool to a Redis outage is not.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, operator string) (*models.CalendarState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetState(ctx, operator)
		if err == nil {
			return state, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		state, err := r.primary.GetState(ctx, operator)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetState(ctx, operator)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.CalendarState) error {
	if !r.isDown.Load() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, operator string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearState(ctx, operator)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearState(ctx, operator)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

package repository

import (
	"context"
	"sync"
	"time"

	"ratedesk/internal/models"
)

// MemoryStateRepository is the in-process fallback used when Redis is
// unavailable. Sessions do not survive restarts.
type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

type stateEntry struct {
	state     *models.CalendarState
	expiresAt time.Time
}

// GetState evicts lazily, matching the TTL behavior of the Redis repo.
func (r *MemoryStateRepository) GetState(ctx context.Context, operator string) (*models.CalendarState, error) {
	val, ok := r.states.Load(operator)
	if !ok {
		return nil, nil
	}

	entry := val.(*stateEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		r.states.Delete(operator)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.CalendarState) error {
	entry := &stateEntry{state: state}
	if r.ttl > 0 {
		entry.expiresAt = time.Now().Add(r.ttl)
	}
	r.states.Store(state.Operator, entry)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, operator string) error {
	r.states.Delete(operator)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}

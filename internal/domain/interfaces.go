package domain

import (
	"context"
	"time"

	"ratedesk/internal/models"
)

// PricingAPI is the backend pricing service the calendar orchestrates.
// All dates cross this boundary as Gregorian YYYY-MM-DD strings.
type PricingAPI interface {
	FetchCalendar(ctx context.Context, roomID, boardTypeID int64, startDate, endDate string) ([]models.RateRecord, error)
	UpdateStock(ctx context.Context, roomID int64, startDate, endDate string, quantity int) error
	UpdatePrice(ctx context.Context, roomID int64, startDate, endDate string, boardTypeID, price, extraPrice, childPrice int64) error
	BoardTypes(ctx context.Context) ([]models.BoardType, error)
	Rooms(ctx context.Context, hotelID int64) ([]models.Room, error)
}

// StateRepository persists per-operator calendar sessions and backs the
// HTTP rate limiter.
type StateRepository interface {
	GetState(ctx context.Context, operator string) (*models.CalendarState, error)
	SetState(ctx context.Context, state *models.CalendarState) error
	ClearState(ctx context.Context, operator string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Auditor records save attempts; entries carry per-call outcomes so a
// partial save (stock landed, price failed) stays visible after the fact.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Notifier pushes operational alerts to managers. Delivery is best
// effort; implementations swallow their own errors.
type Notifier interface {
	RangeUpdated(ctx context.Context, entry *models.AuditEntry)
	SaveFailed(ctx context.Context, entry *models.AuditEntry)
}

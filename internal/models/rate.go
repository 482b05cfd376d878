package models

import (
	"time"

	"ratedesk/internal/jalali"
)

// RateRecord is one day of rate and stock for a room/board combination,
// as fetched from the pricing backend. Dates stay in the Gregorian wire
// form; display conversion happens in the calendar layer. A zero price
// means no rate is configured for the day.
type RateRecord struct {
	Date       string `json:"date"`
	Price      int64  `json:"price"`
	ExtraPrice int64  `json:"extra_price"`
	ChildPrice int64  `json:"child_price"`
	Stock      int    `json:"stock"`
}

func (r RateRecord) HasPrice() bool { return r.Price > 0 }
func (r RateRecord) HasStock() bool { return r.Stock > 0 }

// SoldOut is true only for a priced day with zero stock. An unpriced day
// is never sold out, whatever its stock says.
func (r RateRecord) SoldOut() bool { return r.Price > 0 && r.Stock == 0 }

// BoardType is a meal-plan option (BB, HB, FB...).
type BoardType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Room is a bookable room type of a hotel.
type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DateRange is an inclusive Jalali date span with Start ≤ End.
type DateRange struct {
	Start jalali.Date `json:"start"`
	End   jalali.Date `json:"end"`
}

// NewDateRange builds a normalized range; arguments may come in either
// chronological order.
func NewDateRange(a, b jalali.Date) DateRange {
	if b.Before(a) {
		a, b = b, a
	}
	return DateRange{Start: a, End: b}
}

// Contains reports inclusive membership.
func (r DateRange) Contains(d jalali.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of days in the range, counting both ends.
func (r DateRange) Days() int {
	n := 1
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		n++
	}
	return n
}

// AuditEntry records one save attempt against the pricing backend,
// including per-call outcomes so partial saves leave a paper trail.
type AuditEntry struct {
	ID          string    `json:"id"`
	Operator    string    `json:"operator"`
	RoomID      int64     `json:"room_id"`
	BoardTypeID int64     `json:"board_type_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Kind        string    `json:"kind"` // single, range, paste
	Price       int64     `json:"price"`
	ExtraPrice  int64     `json:"extra_price"`
	ChildPrice  int64     `json:"child_price"`
	Stock       int       `json:"stock"`
	StockError  string    `json:"stock_error,omitempty"`
	PriceError  string    `json:"price_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Succeeded reports whether both backend calls went through.
func (e AuditEntry) Succeeded() bool {
	return e.StockError == "" && e.PriceError == ""
}

const (
	AuditKindSingle = "single"
	AuditKindRange  = "range"
	AuditKindPaste  = "paste"
)

package models

import "ratedesk/internal/jalali"

// FilterMode is the single global cell filter. Modes are mutually
// exclusive; re-selecting the active one resets to FilterNone.
type FilterMode string

const (
	FilterNone     FilterMode = ""
	FilterNoRate   FilterMode = "no-rate"
	FilterActive   FilterMode = "active"
	FilterSoldOut  FilterMode = "sold-out"
	FilterHoliday  FilterMode = "holiday"
	FilterSelected FilterMode = "selected"
)

// Valid reports whether the mode is one of the known filters.
func (m FilterMode) Valid() bool {
	switch m {
	case FilterNone, FilterNoRate, FilterActive, FilterSoldOut, FilterHoliday, FilterSelected:
		return true
	}
	return false
}

// EditKind tags the open edit session variant.
type EditKind string

const (
	EditSingle EditKind = "single"
	EditRange  EditKind = "range"
)

// EditSession holds in-progress field values for an open edit, seeded
// from the fetched record but independent of it until saved.
type EditSession struct {
	Kind       EditKind    `json:"kind"`
	Date       jalali.Date `json:"date,omitempty"`  // single edits
	Range      DateRange   `json:"range,omitempty"` // range edits
	Label      string      `json:"label"`
	Price      int64       `json:"price"`
	ExtraPrice int64       `json:"extra_price"`
	ChildPrice int64       `json:"child_price"`
	Stock      int         `json:"stock"`
}

// Span returns the inclusive date span the session covers.
func (s EditSession) Span() DateRange {
	if s.Kind == EditRange {
		return s.Range
	}
	return DateRange{Start: s.Date, End: s.Date}
}

// ContextMenu is the transient right-click popup state for one day cell.
type ContextMenu struct {
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Date   jalali.Date `json:"date"`
	Record *RateRecord `json:"record,omitempty"`
}

// CalendarState is the per-operator editing session: which month of
// which room/board is on screen, what is selected, what is being edited,
// and what sits on the clipboard. It is the unit of persistence in the
// state repository.
type CalendarState struct {
	Operator    string                `json:"operator"`
	RoomID      int64                 `json:"room_id"`
	BoardTypeID int64                 `json:"board_type_id"`
	Month       jalali.Date           `json:"month"` // first day of the visible month
	Records     map[string]RateRecord `json:"records,omitempty"`
	Anchor      *jalali.Date          `json:"anchor,omitempty"`
	Range       *DateRange            `json:"range,omitempty"`
	Edit        *EditSession          `json:"edit,omitempty"`
	Clipboard   *RateRecord           `json:"clipboard,omitempty"`
	Filter      FilterMode            `json:"filter,omitempty"`
	Menu        *ContextMenu          `json:"menu,omitempty"`
}

// RecordFor looks up the fetched record for a day, if any.
func (s *CalendarState) RecordFor(d jalali.Date) (RateRecord, bool) {
	if s.Records == nil {
		return RateRecord{}, false
	}
	rec, ok := s.Records[d.ISO()]
	return rec, ok
}

// ClearSelection drops the anchor and range together.
func (s *CalendarState) ClearSelection() {
	s.Anchor = nil
	s.Range = nil
}

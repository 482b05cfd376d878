package calendar

import (
	"ratedesk/internal/jalali"
	"ratedesk/internal/models"
)

// SelectionEvent drives the selection reducer. Keeping the transitions in
// one place avoids the tangle of cooperating flags this logic degrades
// into otherwise.
type SelectionEvent int

const (
	// SelClick anchors on a day and drops any range.
	SelClick SelectionEvent = iota
	// SelShiftClick extends the anchor into a normalized range.
	SelShiftClick
	// SelClear drops anchor and range together.
	SelClear
)

// Selection is the current anchor plus optional inclusive range. Exactly
// one of {empty, anchor only, anchor+range} holds at any time.
type Selection struct {
	Anchor *jalali.Date
	Range  *models.DateRange
}

// Reduce applies one event and returns the next selection state. The
// date argument is ignored for SelClear.
func (s Selection) Reduce(ev SelectionEvent, d jalali.Date) Selection {
	switch ev {
	case SelClick:
		day := d
		return Selection{Anchor: &day}
	case SelShiftClick:
		if s.Anchor == nil {
			day := d
			return Selection{Anchor: &day}
		}
		r := models.NewDateRange(*s.Anchor, d)
		return Selection{Anchor: s.Anchor, Range: &r}
	case SelClear:
		return Selection{}
	}
	return s
}

package calendar

import (
	"fmt"

	"ratedesk/internal/jalali"
	"ratedesk/internal/models"
)

// newSingleEdit opens an edit session for one day, seeded from the
// fetched record or zeros when the day has no rate yet.
func newSingleEdit(st *models.CalendarState, d jalali.Date) *models.EditSession {
	session := &models.EditSession{
		Kind:  models.EditSingle,
		Date:  d,
		Label: dayLabel(d),
	}
	if rec, ok := st.RecordFor(d); ok {
		session.Price = rec.Price
		session.ExtraPrice = rec.ExtraPrice
		session.ChildPrice = rec.ChildPrice
		session.Stock = rec.Stock
	}
	return session
}

// newRangeEdit opens an edit session for a selected range, seeded from
// the range's first day.
func newRangeEdit(st *models.CalendarState, r models.DateRange) *models.EditSession {
	session := &models.EditSession{
		Kind:  models.EditRange,
		Range: r,
		Label: fmt.Sprintf("%s تا %s", dayLabel(r.Start), dayLabel(r.End)),
	}
	if rec, ok := st.RecordFor(r.Start); ok {
		session.Price = rec.Price
		session.ExtraPrice = rec.ExtraPrice
		session.ChildPrice = rec.ChildPrice
		session.Stock = rec.Stock
	}
	return session
}

func dayLabel(d jalali.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day, d.MonthName(), d.Year)
}

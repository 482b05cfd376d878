package calendar

import (
	"ratedesk/internal/holidays"
	"ratedesk/internal/jalali"
	"ratedesk/internal/models"
)

// DayCell is the render state of one day in the visible month, derived
// from the fetched record, holiday classification, today, the active
// selection and the active filter.
type DayCell struct {
	Date        jalali.Date        `json:"date"`
	ISO         string             `json:"iso"`
	Record      *models.RateRecord `json:"record,omitempty"`
	HasPrice    bool               `json:"has_price"`
	HasStock    bool               `json:"has_stock"`
	IsSoldOut   bool               `json:"is_sold_out"`
	IsPast      bool               `json:"is_past"`
	IsToday     bool               `json:"is_today"`
	IsHoliday   bool               `json:"is_holiday"`
	HolidayName string             `json:"holiday_name,omitempty"`
	IsSelected  bool               `json:"is_selected"`
	IsDimmed    bool               `json:"is_dimmed"`
}

// Editable reports whether a plain click on the cell may open a
// single-day edit. Past days stay selectable as range anchors but never
// open an editor; dimmed days are inert entirely.
func (c DayCell) Editable() bool {
	return !c.IsPast && !c.IsDimmed
}

// BuildDayCells derives the render state for every day of the visible
// month. Record lookup is by ISO key, one map hit per cell.
func BuildDayCells(st *models.CalendarState, classifier *holidays.Classifier, today jalali.Date) []DayCell {
	days := st.Month.MonthDays()
	cells := make([]DayCell, 0, len(days))

	for _, d := range days {
		cell := DayCell{
			Date:    d,
			ISO:     d.ISO(),
			IsPast:  d.Before(today),
			IsToday: d.Equal(today),
		}

		if rec, ok := st.RecordFor(d); ok {
			r := rec
			cell.Record = &r
			cell.HasPrice = rec.HasPrice()
			cell.HasStock = rec.HasStock()
			cell.IsSoldOut = rec.SoldOut()
		}

		if name, ok := classifier.Classify(d); ok {
			cell.IsHoliday = true
			cell.HolidayName = name
		}

		if st.Range != nil {
			cell.IsSelected = st.Range.Contains(d)
		}

		cell.IsDimmed = dimmed(cell, st.Filter)
		cells = append(cells, cell)
	}

	return cells
}

// dimmed is true when a filter is active and the cell fails its
// predicate. Dimmed cells are visually suppressed and non-interactive.
func dimmed(c DayCell, filter models.FilterMode) bool {
	switch filter {
	case models.FilterNoRate:
		return c.HasPrice
	case models.FilterActive:
		return !c.HasPrice || c.IsSoldOut
	case models.FilterSoldOut:
		return !c.IsSoldOut
	case models.FilterHoliday:
		return !c.IsHoliday
	case models.FilterSelected:
		return !c.IsSelected
	}
	return false
}

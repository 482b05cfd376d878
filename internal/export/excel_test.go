package export

import (
	"testing"

	"ratedesk/internal/holidays"
	"ratedesk/internal/jalali"
	"ratedesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestMonthToExcel(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(t.TempDir(), holidays.New(), &logger)

	st := &models.CalendarState{
		Operator:    "op-1",
		RoomID:      12,
		BoardTypeID: 3,
		Month:       jalali.Date{Year: 1403, Month: 4, Day: 1},
		Records: map[string]models.RateRecord{
			"2024-07-10": {Date: "2024-07-10", Price: 1500000, ExtraPrice: 200000, Stock: 4}, // day 20
			"2024-07-11": {Date: "2024-07-11", Price: 1200000, Stock: 0},                     // day 21, sold out
		},
	}

	path, err := e.MonthToExcel(st)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "calendar_room12_board3_1403-04.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "Tir 1403")
	assert.Contains(t, title, "room 12")

	header, err := f.GetCellValue(sheetName, "E2")
	require.NoError(t, err)
	assert.Equal(t, "Price", header)

	// Day rows start at row 3; day 20 sits at row 22.
	price, err := f.GetCellValue(sheetName, "E22")
	require.NoError(t, err)
	assert.Equal(t, "1500000", price)

	status, err := f.GetCellValue(sheetName, "I22")
	require.NoError(t, err)
	assert.Equal(t, "active", status)

	soldOut, err := f.GetCellValue(sheetName, "I23")
	require.NoError(t, err)
	assert.Equal(t, "sold out", soldOut)

	// 1403/04/01 is a Friday; its holiday column carries the rest-day name.
	holiday, err := f.GetCellValue(sheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "جمعه", holiday)

	// An unpriced day has no status.
	empty, err := f.GetCellValue(sheetName, "I5")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestMonthToExcelEmptyMonth(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(t.TempDir(), holidays.New(), &logger)

	st := &models.CalendarState{
		RoomID:      7,
		BoardTypeID: 1,
		Month:       jalali.Date{Year: 1402, Month: 12, Day: 1},
	}

	path, err := e.MonthToExcel(st)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	// Title row, header row, then one row per day of Esfand 1402 (29 days).
	assert.Len(t, rows, 2+29)
}

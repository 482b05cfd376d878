package export

import (
	"fmt"
	"os"
	"path/filepath"

	"ratedesk/internal/holidays"
	"ratedesk/internal/metrics"
	"ratedesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes a month of rates and stock to an xlsx file, one row
// per day, for operators who want the calendar outside the tool.
type Exporter struct {
	dir        string
	classifier *holidays.Classifier
	logger     zerolog.Logger
}

func NewExporter(dir string, classifier *holidays.Classifier, logger *zerolog.Logger) *Exporter {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "export").Logger()
	}
	return &Exporter{dir: dir, classifier: classifier, logger: base}
}

const sheetName = "Calendar"

var columns = []string{"Day", "Date", "Gregorian", "Holiday", "Price", "Extra Price", "Child Price", "Stock", "Status"}

// MonthToExcel renders the state's visible month and returns the file
// path.
func (e *Exporter) MonthToExcel(st *models.CalendarState) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("%s %d — room %d, board type %d", st.Month.MonthName(), st.Month.Year, st.RoomID, st.BoardTypeID)
	_ = f.SetCellValue(sheetName, "A1", title)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	e.writeHeaderRow(f)
	e.writeDayRows(f, st)

	_ = f.SetColWidth(sheetName, "A", lastCol, 14)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("calendar_room%d_board%d_%04d-%02d.xlsx", st.RoomID, st.BoardTypeID, st.Month.Year, st.Month.Month)
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	metrics.IncExport()
	e.logger.Info().Str("file_path", filePath).Msg("excel file created")
	return filePath, nil
}

func (e *Exporter) writeHeaderRow(f *excelize.File) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, name)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
}

func (e *Exporter) writeDayRows(f *excelize.File, st *models.CalendarState) {
	holidayStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4EC"}, Pattern: 1},
	})

	row := 3
	for _, d := range st.Month.MonthDays() {
		holidayName := ""
		isHoliday := false
		if e.classifier != nil {
			holidayName, isHoliday = e.classifier.Classify(d)
		}

		var rec models.RateRecord
		rec, _ = st.RecordFor(d)

		status := ""
		switch {
		case rec.SoldOut():
			status = "sold out"
		case rec.HasPrice():
			status = "active"
		}

		values := []interface{}{
			d.Day,
			d.String(),
			d.ISO(),
			holidayName,
			rec.Price,
			rec.ExtraPrice,
			rec.ChildPrice,
			rec.Stock,
			status,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		if isHoliday {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(columns), row)
			_ = f.SetCellStyle(sheetName, first, last, holidayStyle)
		}

		row++
	}
}

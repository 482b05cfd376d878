package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ratedesk/internal/config"
	"ratedesk/internal/export"
	"ratedesk/internal/holidays"
	"ratedesk/internal/jalali"
	"ratedesk/internal/logging"
	"ratedesk/internal/models"
	"ratedesk/internal/pricing"
)

// exporter fetches one month of rates from the pricing backend and
// writes it to an xlsx file, without going through the API server.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		roomID  = flag.Int64("room", 0, "room type id (required)")
		boardID = flag.Int64("board", 0, "board type id (required)")
		year    = flag.Int("year", 0, "jalali year (default: current)")
		month   = flag.Int("month", 0, "jalali month 1-12 (default: current)")
		outDir  = flag.String("out", "", "output directory (default: exports path from config)")
	)
	flag.Parse()

	if *roomID == 0 || *boardID == 0 {
		flag.Usage()
		return fmt.Errorf("both -room and -board are required")
	}
	if *month < 0 || *month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		loc = time.UTC
	}
	today := jalali.Today(loc)

	target := jalali.Date{Year: today.Year, Month: today.Month, Day: 1}
	if *year != 0 {
		target.Year = *year
	}
	if *month != 0 {
		target.Month = *month
	}

	opts := []holidays.Option{}
	if cfg.Calendar.RestDayName != "" {
		opts = append(opts, holidays.WithRestWeekday(cfg.Calendar.RestDay(), cfg.Calendar.RestDayName))
	}
	if cfg.Calendar.HolidaysPath != "" {
		table, err := holidays.LoadTable(cfg.Calendar.HolidaysPath)
		if err != nil {
			return fmt.Errorf("load holidays table: %w", err)
		}
		opts = append(opts, holidays.WithTable(table))
	}
	classifier := holidays.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := pricing.NewClient(cfg.Backend, logger)
	records, err := client.FetchCalendar(ctx, *roomID, *boardID, target.MonthStart().ISO(), target.MonthEnd().ISO())
	if err != nil {
		return fmt.Errorf("fetch calendar: %w", err)
	}

	byDate := make(map[string]models.RateRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}

	st := &models.CalendarState{
		RoomID:      *roomID,
		BoardTypeID: *boardID,
		Month:       target,
		Records:     byDate,
	}

	dir := cfg.Exports.Path
	if *outDir != "" {
		dir = *outDir
	}

	exporter := export.NewExporter(dir, classifier, logger)
	path, err := exporter.MonthToExcel(st)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Println(path)
	return nil
}

package holidays

import (
	"fmt"
	"os"

	"ratedesk/internal/jalali"

	yaml "gopkg.in/yaml.v2"
)

// Classifier decides whether a Jalali date is a holiday. Two rules apply:
// the weekly rest day always wins, then a static month-day table of
// recurring national holidays. Movable (lunar) holidays are deliberately
// not modelled; the table is fixed per Jalali month-day.
type Classifier struct {
	restWeekday int
	restName    string
	table       map[string]string // "MM-DD" -> name
}

const defaultRestName = "جمعه"

// Recurring Jalali holidays, keyed by month-day.
var defaultTable = map[string]string{
	"01-01": "نوروز",
	"01-02": "نوروز",
	"01-03": "نوروز",
	"01-04": "نوروز",
	"01-12": "روز جمهوری اسلامی",
	"01-13": "روز طبیعت",
	"03-14": "رحلت امام خمینی",
	"03-15": "قیام ۱۵ خرداد",
	"11-22": "پیروزی انقلاب اسلامی",
	"12-29": "ملی شدن صنعت نفت",
}

// Option adjusts a Classifier at construction time.
type Option func(*Classifier)

// WithRestWeekday overrides the weekly rest day (Saturday=0 .. Friday=6).
func WithRestWeekday(weekday int, name string) Option {
	return func(c *Classifier) {
		if weekday >= jalali.Saturday && weekday <= jalali.Friday {
			c.restWeekday = weekday
		}
		if name != "" {
			c.restName = name
		}
	}
}

// WithTable replaces the built-in holiday table.
func WithTable(table map[string]string) Option {
	return func(c *Classifier) {
		if len(table) > 0 {
			c.table = table
		}
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		restWeekday: jalali.Friday,
		restName:    defaultRestName,
		table:       defaultTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadTable reads a month-day holiday table from a YAML file:
//
//	holidays:
//	  "01-01": "نوروز"
func LoadTable(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays file: %w", err)
	}

	var parsed struct {
		Holidays map[string]string `yaml:"holidays"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse holidays file: %w", err)
	}
	if len(parsed.Holidays) == 0 {
		return nil, fmt.Errorf("holidays file %s has no entries", path)
	}
	return parsed.Holidays, nil
}

// Classify returns the holiday name for a date. The rest-day name takes
// precedence when a table entry falls on the rest day.
func (c *Classifier) Classify(d jalali.Date) (string, bool) {
	if d.Weekday() == c.restWeekday {
		return c.restName, true
	}
	if name, ok := c.table[monthDayKey(d)]; ok {
		return name, true
	}
	return "", false
}

// IsHoliday is a convenience wrapper around Classify.
func (c *Classifier) IsHoliday(d jalali.Date) bool {
	_, ok := c.Classify(d)
	return ok
}

func monthDayKey(d jalali.Date) string {
	return fmt.Sprintf("%02d-%02d", d.Month, d.Day)
}

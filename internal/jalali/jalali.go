package jalali

import (
	"fmt"
	"time"
)

// Date is a day in the Jalali (Solar Hijri) calendar. The backend speaks
// Gregorian ISO dates; everything operators see is Jalali, so conversion
// happens at the wire boundary and nowhere else.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1..12
	Day   int `json:"day"`   // 1..31
}

// Weekday indices follow the Iranian week: Saturday=0 .. Friday=6.
const (
	Saturday = iota
	Sunday
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
)

var monthNames = [12]string{
	"Farvardin", "Ordibehesht", "Khordad",
	"Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar",
	"Dey", "Bahman", "Esfand",
}

// Year boundaries of the arithmetic algorithm (Birashk break years).
var breaks = []int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// MinYear and MaxYear bound the years the break table covers. Dates
// outside these bounds fail Valid and must be rejected before any
// conversion.
const (
	MinYear = -61
	MaxYear = 3177
)

func div(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

// calResult carries the per-year outputs of the break-table calculation:
// the Gregorian year containing Farvardin 1, the March day it falls on,
// and the leap remainder (0 means leap year).
type calResult struct {
	leap  int
	gy    int
	march int
}

func jalCal(jy int) calResult {
	// Out-of-table years are clamped so arithmetic on hostile input can
	// never panic; boundary validation happens in Valid.
	if jy < MinYear {
		jy = MinYear
	} else if jy > MaxYear {
		jy = MaxYear
	}

	gy := jy + 621
	leapJ := -14
	jp := breaks[0]

	var jump int
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += div(jump, 33)*8 + div(mod(jump, 33), 4)
		jp = jm
	}
	n := jy - jp

	leapJ += div(n, 33)*8 + div(mod(n, 33)+3, 4)
	if mod(jump, 33) == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := div(gy, 4) - div((div(gy, 100)+1)*3, 4) - 150
	march := 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + div(jump+4, 33)*33
	}
	leap := mod(mod(n+1, 33)-1, 4)
	if leap == -1 {
		leap = 4
	}

	return calResult{leap: leap, gy: gy, march: march}
}

func gregorianToJDN(gy, gm, gd int) int {
	a := div(14-gm, 12)
	y := gy + 4800 - a
	m := gm + 12*a - 3
	return gd + div(153*m+2, 5) + 365*y + div(y, 4) - div(y, 100) + div(y, 400) - 32045
}

func jdnToGregorian(jdn int) (gy, gm, gd int) {
	a := jdn + 32044
	b := div(4*a+3, 146097)
	c := a - div(146097*b, 4)
	d := div(4*c+3, 1461)
	e := c - div(1461*d, 4)
	m := div(5*e+2, 153)
	gd = e - div(153*m+2, 5) + 1
	gm = m + 3 - 12*div(m, 10)
	gy = 100*b + d - 4800 + div(m, 10)
	return
}

func toJDN(d Date) int {
	r := jalCal(d.Year)
	return gregorianToJDN(r.gy, 3, r.march) +
		(d.Month-1)*31 - div(d.Month, 7)*(d.Month-7) + d.Day - 1
}

func fromJDN(jdn int) Date {
	gy, _, _ := jdnToGregorian(jdn)
	jy := gy - 621
	r := jalCal(jy)
	firstOfYear := gregorianToJDN(gy, 3, r.march)

	k := jdn - firstOfYear
	if k >= 0 {
		if k <= 185 {
			return Date{Year: jy, Month: 1 + div(k, 31), Day: mod(k, 31) + 1}
		}
		k -= 186
	} else {
		jy--
		k += 179
		if r.leap == 1 {
			k++
		}
	}
	return Date{Year: jy, Month: 7 + div(k, 30), Day: mod(k, 30) + 1}
}

// IsLeapYear reports whether the Jalali year has a 30-day Esfand.
func IsLeapYear(year int) bool {
	return jalCal(year).leap == 0
}

// MonthLength returns the number of days in a Jalali month.
func MonthLength(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeapYear(year):
		return 30
	default:
		return 29
	}
}

// FromTime converts a Gregorian time to its Jalali date (calendar day only).
func FromTime(t time.Time) Date {
	return fromJDN(gregorianToJDN(t.Year(), int(t.Month()), t.Day()))
}

// ToTime converts a Jalali date to midnight UTC of the Gregorian day.
func (d Date) ToTime() time.Time {
	gy, gm, gd := jdnToGregorian(toJDN(d))
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC)
}

// ISO renders the Gregorian wire form, YYYY-MM-DD.
func (d Date) ISO() string {
	return d.ToTime().Format("2006-01-02")
}

// FromISO parses a Gregorian YYYY-MM-DD string into a Jalali date.
func FromISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse iso date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Today returns the current Jalali date in the given location.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(time.Now().In(loc))
}

// Weekday returns the Iranian weekday index (Saturday=0 .. Friday=6).
func (d Date) Weekday() int {
	// JDN 0 is a Monday; shift so Saturday maps to 0.
	return mod(toJDN(d)+2, 7)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// MonthName returns the Jalali month name, or empty for invalid months.
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	return monthNames[d.Month-1]
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Valid reports whether d names a real calendar day inside the
// supported year range.
func (d Date) Valid() bool {
	return d.Year >= MinYear && d.Year <= MaxYear &&
		d.Month >= 1 && d.Month <= 12 &&
		d.Day >= 1 && d.Day <= MonthLength(d.Year, d.Month)
}

// Compare returns -1, 0 or 1 ordering d against other chronologically.
func (d Date) Compare(other Date) int {
	a, b := toJDN(d), toJDN(other)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d.Compare(other) == 0 }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return fromJDN(toJDN(d) + n)
}

// AddMonths steps whole months, clamping the day-of-month so navigation
// never drifts into the wrong month (Esfand 30 -> Esfand 29, not Farvardin).
func (d Date) AddMonths(n int) Date {
	total := (d.Year*12 + d.Month - 1) + n
	year := div(total, 12)
	month := mod(total, 12) + 1
	day := d.Day
	if max := MonthLength(year, month); day > max {
		day = max
	}
	return Date{Year: year, Month: month, Day: day}
}

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// MonthEnd returns the last day of d's month.
func (d Date) MonthEnd() Date {
	return Date{Year: d.Year, Month: d.Month, Day: MonthLength(d.Year, d.Month)}
}

// MonthDays lists every day of d's month in order.
func (d Date) MonthDays() []Date {
	n := MonthLength(d.Year, d.Month)
	days := make([]Date, 0, n)
	for day := 1; day <= n; day++ {
		days = append(days, Date{Year: d.Year, Month: d.Month, Day: day})
	}
	return days
}

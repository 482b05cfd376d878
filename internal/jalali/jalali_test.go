package jalali

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionKnownDates(t *testing.T) {
	cases := []struct {
		name string
		j    Date
		iso  string
	}{
		{"nowruz 1403", Date{1403, 1, 1}, "2024-03-20"},
		{"nowruz 1404", Date{1404, 1, 1}, "2025-03-21"},
		{"tir 20 1403", Date{1403, 4, 20}, "2024-07-10"},
		{"esfand 20 1403", Date{1403, 12, 20}, "2025-03-10"},
		{"dey 11 1378", Date{1378, 10, 11}, "2000-01-01"},
		{"last day of leap esfand", Date{1403, 12, 30}, "2025-03-20"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.iso, tc.j.ISO())

			got, err := FromISO(tc.iso)
			require.NoError(t, err)
			assert.Equal(t, tc.j, got)
		})
	}
}

func TestFromISOInvalid(t *testing.T) {
	_, err := FromISO("2024/07/10")
	assert.Error(t, err)

	_, err = FromISO("not-a-date")
	assert.Error(t, err)
}

func TestRoundTripFullYears(t *testing.T) {
	// Walk day by day across a leap boundary; every date must survive the
	// trip through Gregorian and back.
	d := Date{1402, 1, 1}
	end := Date{1405, 1, 1}
	for d.Before(end) {
		back := FromTime(d.ToTime())
		require.Equal(t, d, back, "round trip mismatch at %s", d)
		d = d.AddDays(1)
	}
}

func TestLeapYears(t *testing.T) {
	assert.True(t, IsLeapYear(1399))
	assert.True(t, IsLeapYear(1403))
	assert.False(t, IsLeapYear(1402))
	assert.False(t, IsLeapYear(1404))
}

func TestMonthLength(t *testing.T) {
	assert.Equal(t, 31, MonthLength(1403, 1))
	assert.Equal(t, 31, MonthLength(1403, 6))
	assert.Equal(t, 30, MonthLength(1403, 7))
	assert.Equal(t, 30, MonthLength(1403, 12))
	assert.Equal(t, 29, MonthLength(1402, 12))
}

func TestWeekday(t *testing.T) {
	// 2024-03-20 was a Wednesday, 2000-01-01 a Saturday.
	assert.Equal(t, Wednesday, Date{1403, 1, 1}.Weekday())
	assert.Equal(t, Saturday, Date{1378, 10, 11}.Weekday())

	// Consecutive days cycle through the week.
	d := Date{1403, 1, 1}
	for i := 0; i < 14; i++ {
		next := d.AddDays(1)
		assert.Equal(t, (d.Weekday()+1)%7, next.Weekday())
		d = next
	}
}

func TestAddMonthsClamping(t *testing.T) {
	cases := []struct {
		name   string
		start  Date
		months int
		want   Date
	}{
		{"forward within year", Date{1403, 1, 15}, 1, Date{1403, 2, 15}},
		{"into 30-day month clamps", Date{1403, 6, 31}, 1, Date{1403, 7, 30}},
		{"back into short esfand clamps", Date{1403, 1, 31}, -1, Date{1402, 12, 29}},
		{"leap esfand kept", Date{1402, 11, 30}, 1, Date{1402, 12, 29}},
		{"year wrap forward", Date{1403, 12, 10}, 1, Date{1404, 1, 10}},
		{"year wrap backward", Date{1403, 1, 10}, -1, Date{1402, 12, 10}},
		{"twelve months lands same month", Date{1403, 5, 20}, 12, Date{1404, 5, 20}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.start.AddMonths(tc.months))
		})
	}
}

func TestAddMonthsNeverSkips(t *testing.T) {
	// Stepping forward then backward from any day-of-month must land in the
	// adjacent month, never two away.
	for day := 1; day <= 31; day++ {
		d := Date{1403, 1, day}
		next := d.AddMonths(1)
		assert.Equal(t, 2, next.Month, "day %d", day)
		prev := d.AddMonths(-1)
		assert.Equal(t, 12, prev.Month, "day %d", day)
		assert.Equal(t, 1402, prev.Year, "day %d", day)
	}
}

func TestMonthDays(t *testing.T) {
	days := Date{1403, 12, 7}.MonthDays()
	require.Len(t, days, 30)
	assert.Equal(t, Date{1403, 12, 1}, days[0])
	assert.Equal(t, Date{1403, 12, 30}, days[29])

	days = Date{1402, 12, 1}.MonthDays()
	require.Len(t, days, 29)
}

func TestCompareAndHelpers(t *testing.T) {
	a := Date{1403, 4, 20}
	b := Date{1403, 4, 21}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(Date{1403, 4, 20}))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
}

func TestMonthBounds(t *testing.T) {
	d := Date{1403, 12, 17}
	assert.Equal(t, Date{1403, 12, 1}, d.MonthStart())
	assert.Equal(t, Date{1403, 12, 30}, d.MonthEnd())
}

func TestFromTimeUsesCalendarDay(t *testing.T) {
	late := time.Date(2024, 7, 10, 23, 45, 0, 0, time.UTC)
	assert.Equal(t, Date{1403, 4, 20}, FromTime(late))
}

func TestTodayNilLocation(t *testing.T) {
	got := Today(nil)
	assert.False(t, got.IsZero())
}

func TestStringAndMonthName(t *testing.T) {
	d := Date{1403, 4, 20}
	assert.Equal(t, "1403/04/20", d.String())
	assert.Equal(t, "Tir", d.MonthName())
	assert.Equal(t, "", Date{}.MonthName())
}

func TestValidBounds(t *testing.T) {
	assert.True(t, Date{1403, 4, 20}.Valid())
	assert.True(t, Date{1403, 12, 30}.Valid()) // leap Esfand
	assert.False(t, Date{1402, 12, 30}.Valid())
	assert.False(t, Date{1403, 13, 1}.Valid())
	assert.False(t, Date{1403, 4, 32}.Valid())
	assert.False(t, Date{9999, 12, 1}.Valid())
	assert.False(t, Date{MaxYear + 1, 1, 1}.Valid())
	assert.False(t, Date{MinYear - 1, 1, 1}.Valid())
	assert.True(t, Date{MaxYear, 1, 1}.Valid())
}

func TestOutOfRangeYearsDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { MonthLength(9999, 12) })
	assert.NotPanics(t, func() { IsLeapYear(-500) })
	assert.NotPanics(t, func() { Date{1403, 4, 15}.AddMonths(50000 * 12) })
}

package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRejectsImpossibleDates(t *testing.T) {
	cases := []struct {
		name    string
		y, m, d int
	}{
		{"feb 30", 2024, 2, 30},
		{"feb 29 non leap", 2023, 2, 29},
		{"april 31", 2026, 4, 31},
		{"month 13", 2026, 13, 1},
		{"day zero", 2026, 1, 0},
		{"before range", 1899, 12, 31},
		{"after range", 10000, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Make(tc.y, tc.m, tc.d, 0, 0, time.UTC)
			require.ErrorIs(t, err, ErrInvalidDate)
		})
	}

	_, err := Make(2026, 1, 1, 24, 0, time.UTC)
	require.ErrorIs(t, err, ErrInvalidTime)

	got, err := Make(2024, 2, 29, 9, 30, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC), got)
}

func TestDayBoundaries(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), DayStart(ts))
	assert.Equal(t, time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC), EndOfDay(ts))
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), NextDay(ts))
}

func TestDayBoundariesAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-29 is 23 hours long in Berlin.
	day := time.Date(2026, 3, 29, 12, 0, 0, 0, loc)
	assert.Equal(t, 23*time.Hour, NextDay(day).Sub(DayStart(day)))
	assert.Equal(t, time.Date(2026, 3, 30, 12, 0, 0, 0, loc), AddDays(day, 1))
	assert.Equal(t, 1, DaysBetween(DayStart(day), NextDay(day)))
}

func TestAddMonthsClamps(t *testing.T) {
	cases := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC), 1, time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 12, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), -13, time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AddMonths(tc.in, tc.n), "AddMonths(%s, %d)", tc.in, tc.n)
	}
}

func TestISOWeekYearBoundaries(t *testing.T) {
	cases := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), 53},
		{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 53},
		{time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 53},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ISOWeek(tc.day), "week of %s", tc.day.Format("2006-01-02"))
	}
}

func TestWeekdaySundayIsZero(t *testing.T) {
	assert.Equal(t, 0, Weekday(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, Weekday(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, Weekday(time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)))
}

func TestCivilCounting(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 366, DaysBetween(a, b))
	assert.Equal(t, 12, MonthsBetween(a, b))
	assert.Equal(t, 20240101, Key(a))
	assert.True(t, SameDay(a, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDayAndClock(t *testing.T) {
	now := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

	got, err := ParseDay("2026-02-03", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDay("+3", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDay("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDay("2026-02-30", now)
	require.ErrorIs(t, err, ErrInvalidDate)

	clock, err := ParseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+45*time.Minute, clock)

	_, err = ParseClock("25:00")
	require.ErrorIs(t, err, ErrInvalidTime)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	now := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2026-01-05xyz", "2026-01", "2026-01-05-01", "+3x", "2026/01/05"} {
		_, err := ParseDay(raw, now)
		assert.ErrorIs(t, err, ErrInvalidDate, raw)
	}
	for _, raw := range []string{"09:30x", "0930", "9:", ":30", "-1:30"} {
		_, err := ParseClock(raw)
		assert.ErrorIs(t, err, ErrInvalidTime, raw)
	}

	got, err := ParseDay("2026-1-5", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDay("-2", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), got)
}

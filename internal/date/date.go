// Package date holds the calendar arithmetic shared by the recurrence engine,
// the day view and the iCalendar bridge. Days are identified by their local
// midnight and compared by civil date, so DST transitions never move an item
// to a neighbouring day.
package date

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinYear = 1900
	MaxYear = 9999
)

var (
	ErrInvalidDate = errors.New("date: invalid date")
	ErrInvalidTime = errors.New("date: invalid time")
)

// Make builds the timestamp of y-m-d hh:mm in loc.
func Make(y, m, d, hh, mm int, loc *time.Location) (time.Time, error) {
	if !Valid(y, m, d) {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, y, m, d)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hh, mm)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(y, time.Month(m), d, hh, mm, 0, 0, loc), nil
}

func Valid(y, m, d int) bool {
	if y < MinYear || y > MaxYear || m < 1 || m > 12 || d < 1 {
		return false
	}
	return d <= DaysInMonth(y, time.Month(m))
}

func IsLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func DaysInMonth(y int, m time.Month) int {
	switch m {
	case time.February:
		if IsLeap(y) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func DaysInYear(y int) int {
	if IsLeap(y) {
		return 366
	}
	return 365
}

// DayStart truncates t to local midnight of its day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's day.
func EndOfDay(t time.Time) time.Time {
	return NextDay(t).Add(-time.Second)
}

func NextDay(t time.Time) time.Time {
	return AddDays(DayStart(t), 1)
}

// AddDays moves t by n calendar days keeping its wall clock.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddMonths moves t by n months. The day of month is clamped when the target
// month is shorter, so Jan 31 + 1 month is the last day of February.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	ty := y + floorDiv(total, 12)
	tm := time.Month(floorMod(total, 12) + 1)
	if dim := DaysInMonth(ty, tm); d > dim {
		d = dim
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ISOWeek returns the ISO 8601 week number of t (1..53).
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

// Weekday returns 0..6 with Sunday as 0.
func Weekday(t time.Time) int {
	return int(t.Weekday())
}

// DayNumber counts civil days since 1970-01-01 for the date of t.
func DayNumber(t time.Time) int {
	y, m, d := t.Date()
	return CivilDayNumber(y, m, d)
}

func CivilDayNumber(y int, m time.Month, d int) int {
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// DaysBetween returns the number of civil days from a to b.
func DaysBetween(a, b time.Time) int {
	return DayNumber(b) - DayNumber(a)
}

// MonthsBetween returns the number of calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return (by-ay)*12 + int(bm) - int(am)
}

// Key returns yyyymmdd for t; equal keys mean the same civil day.
func Key(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func SameDay(a, b time.Time) bool {
	return Key(a) == Key(b)
}

// At returns day's date combined with the wall clock of clock, in clock's
// location.
func At(day, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), clock.Location())
}

// Clock returns the offset of t from its local midnight.
func Clock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
}

// ParseDay accepts YYYY-MM-DD, "today", "tomorrow", "yesterday" and signed
// day offsets such as +3 or -1, relative to now.
func ParseDay(s string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(strings.ToLower(s))
	today := DayStart(now)
	switch raw {
	case "", "today":
		return today, nil
	case "tomorrow":
		return AddDays(today, 1), nil
	case "yesterday":
		return AddDays(today, -1), nil
	}
	if raw[0] == '+' || raw[0] == '-' {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return AddDays(today, n), nil
	}
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	ymd, ok := digits(parts)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Make(ymd[0], ymd[1], ymd[2], 0, 0, now.Location())
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	head, tail, found := strings.Cut(strings.TrimSpace(s), ":")
	hm, ok := digits([]string{head, tail})
	if !found || !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hh, mm := hm[0], hm[1]
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}

// digits converts each field, which must be one or more ASCII digits.
func digits(fields []string) ([]int, bool) {
	out := make([]int, len(fields))
	for i, f := range fields {
		if f == "" || strings.TrimLeft(f, "0123456789") != "" {
			return nil, false
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

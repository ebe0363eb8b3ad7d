// Package recur resolves occurrences of recurrence rules. The semantics
// follow RFC 5545: the base period (day, Monday-start week, month, year) is
// gated by the interval first, then BYMONTH limits, BYMONTHDAY and ordinal
// BYDAY expand inside monthly and yearly periods, and plain BYDAY limits
// daily and weekly rules.
package recur

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
)

// MaxPeriods bounds NthOccurrence.
const MaxPeriods = 10000

var (
	ErrRuleViolatesStartDay = errors.New("recur: rule does not occur on the start day")
	ErrCountUnreachable     = errors.New("recur: occurrence count unreachable")
)

// OccursOn reports whether rule, anchored at start, yields an occurrence on
// day. Only the civil date of day matters.
func OccursOn(rule model.Rule, start time.Time, exc model.Exceptions, day time.Time) bool {
	if rule.Freq < 1 {
		return false
	}
	startKey, dayKey := date.Key(start), date.Key(day)
	if dayKey < startKey {
		return false
	}
	if rule.Bounded() && dayKey > date.Key(rule.Until) {
		return false
	}
	if exc.Contains(day) {
		return false
	}

	switch rule.Type {
	case model.RecurDaily:
		if date.DaysBetween(start, day)%rule.Freq != 0 {
			return false
		}
		return inMonths(rule.ByMonth, day) &&
			matchMonthDays(rule.ByMonthDay, day) &&
			matchPlainWeekdays(rule.ByWeekday, day)
	case model.RecurWeekly:
		weeks := (date.DayNumber(weekStart(day)) - date.DayNumber(weekStart(start))) / 7
		if weeks%rule.Freq != 0 {
			return false
		}
		if !inMonths(rule.ByMonth, day) {
			return false
		}
		if len(rule.ByWeekday) == 0 {
			return day.Weekday() == start.Weekday()
		}
		return matchPlainWeekdays(rule.ByWeekday, day)
	case model.RecurMonthly:
		if date.MonthsBetween(start, day)%rule.Freq != 0 {
			return false
		}
		if !inMonths(rule.ByMonth, day) {
			return false
		}
		return matchMonthlyDay(rule, start, day)
	case model.RecurYearly:
		if (day.Year()-start.Year())%rule.Freq != 0 {
			return false
		}
		return matchYearlyDay(rule, start, day)
	default:
		return false
	}
}

// FindOccurrence returns the start of the occurrence on day, combining day's
// date with the clock of start.
func FindOccurrence(rule model.Rule, start time.Time, exc model.Exceptions, day time.Time) (time.Time, bool) {
	if !OccursOn(rule, start, exc, day) {
		return time.Time{}, false
	}
	return date.At(day, start), true
}

// FindSpanning returns the occurrence that overlaps day, looking back over
// earlier days for occurrences whose duration carries them past midnight. An
// occurrence starting on day itself wins over one carried in from before.
func FindSpanning(rule model.Rule, start time.Time, dur time.Duration, exc model.Exceptions, day time.Time) (time.Time, bool) {
	dayStart := date.DayStart(day)
	if occ, ok := FindOccurrence(rule, start, exc, dayStart); ok {
		return occ, true
	}
	if dur <= 0 {
		return time.Time{}, false
	}
	back := int(dur/(24*time.Hour)) + 1
	for i := 1; i <= back; i++ {
		cand := date.AddDays(dayStart, -i)
		occ, ok := FindOccurrence(rule, start, exc, cand)
		if ok && occ.Add(dur).After(dayStart) {
			return occ, true
		}
	}
	return time.Time{}, false
}

// CheckStartDay enforces that rule produces an occurrence on start's own day.
func CheckStartDay(rule model.Rule, start time.Time) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if !OccursOn(rule, start, model.Exceptions{}, start) {
		return fmt.Errorf("%w: %s", ErrRuleViolatesStartDay, start.Format("2006-01-02"))
	}
	return nil
}

// NthOccurrence returns the start of the n-th (1-based) occurrence of rule,
// ignoring rule.Until and skipping exception days. It walks the periods the
// interval admits, enumerating their days in order.
func NthOccurrence(rule model.Rule, start time.Time, exc model.Exceptions, n int) (time.Time, error) {
	if n < 1 {
		return time.Time{}, fmt.Errorf("%w: count %d", ErrCountUnreachable, n)
	}
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}
	rule.Until = time.Time{}
	first := date.DayStart(start)
	found := 0
	for p := 0; p < MaxPeriods; p++ {
		from, to, ok := period(rule, first, p*rule.Freq)
		if !ok {
			break
		}
		for d := from; d.Before(to); d = date.AddDays(d, 1) {
			if date.Key(d) < date.Key(first) {
				continue
			}
			if OccursOn(rule, start, exc, d) {
				found++
				if found == n {
					return date.At(d, start), nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %d occurrences found, %d requested", ErrCountUnreachable, found, n)
}

// period returns the half-open day range of the k-th base period after the
// one containing first.
func period(rule model.Rule, first time.Time, k int) (time.Time, time.Time, bool) {
	var from, to time.Time
	switch rule.Type {
	case model.RecurDaily:
		from = date.AddDays(first, k)
		to = date.AddDays(from, 1)
	case model.RecurWeekly:
		from = date.AddDays(weekStart(first), 7*k)
		to = date.AddDays(from, 7)
	case model.RecurMonthly:
		y, m, _ := first.Date()
		from = time.Date(y, m+time.Month(k), 1, 0, 0, 0, 0, first.Location())
		to = time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, first.Location())
	case model.RecurYearly:
		from = time.Date(first.Year()+k, time.January, 1, 0, 0, 0, 0, first.Location())
		to = time.Date(from.Year()+1, time.January, 1, 0, 0, 0, 0, first.Location())
	default:
		return time.Time{}, time.Time{}, false
	}
	if from.Year() > date.MaxYear {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return date.AddDays(date.DayStart(t), -offset)
}

func inMonths(months []int, day time.Time) bool {
	return len(months) == 0 || slices.Contains(months, int(day.Month()))
}

func matchMonthDays(list []int, day time.Time) bool {
	if len(list) == 0 {
		return true
	}
	dim := date.DaysInMonth(day.Year(), day.Month())
	d := day.Day()
	for _, v := range list {
		if v > 0 && v == d {
			return true
		}
		if v < 0 && dim+v+1 == d {
			return true
		}
	}
	return false
}

// matchPlainWeekdays matches ByWeekday entries ignoring ordinals.
func matchPlainWeekdays(list []int, day time.Time) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if wd, _ := model.DecodeWeekday(v); wd == day.Weekday() {
			return true
		}
	}
	return false
}

// matchWeekdays matches ByWeekday entries with ordinals counted inside a
// span of spanLen days where day is the pos-th (1-based).
func matchWeekdays(list []int, day time.Time, pos, spanLen int) bool {
	for _, v := range list {
		wd, ord := model.DecodeWeekday(v)
		if wd != day.Weekday() {
			continue
		}
		switch {
		case ord == 0:
			return true
		case ord > 0 && (pos-1)/7+1 == ord:
			return true
		case ord < 0 && (spanLen-pos)/7+1 == -ord:
			return true
		}
	}
	return false
}

func matchWeekdaysInMonth(list []int, day time.Time) bool {
	return matchWeekdays(list, day, day.Day(), date.DaysInMonth(day.Year(), day.Month()))
}

func matchWeekdaysInYear(list []int, day time.Time) bool {
	return matchWeekdays(list, day, day.YearDay(), date.DaysInYear(day.Year()))
}

func matchMonthlyDay(rule model.Rule, start, day time.Time) bool {
	switch {
	case len(rule.ByMonthDay) > 0:
		if !matchMonthDays(rule.ByMonthDay, day) {
			return false
		}
		return len(rule.ByWeekday) == 0 || matchWeekdaysInMonth(rule.ByWeekday, day)
	case len(rule.ByWeekday) > 0:
		return matchWeekdaysInMonth(rule.ByWeekday, day)
	default:
		return day.Day() == start.Day()
	}
}

func matchYearlyDay(rule model.Rule, start, day time.Time) bool {
	if !inMonths(rule.ByMonth, day) {
		return false
	}
	weekdays := func() bool {
		if len(rule.ByMonth) > 0 {
			return matchWeekdaysInMonth(rule.ByWeekday, day)
		}
		return matchWeekdaysInYear(rule.ByWeekday, day)
	}
	switch {
	case len(rule.ByMonthDay) > 0:
		if !matchMonthDays(rule.ByMonthDay, day) {
			return false
		}
		return len(rule.ByWeekday) == 0 || weekdays()
	case len(rule.ByWeekday) > 0:
		return weekdays()
	case len(rule.ByMonth) > 0:
		return day.Day() == start.Day()
	default:
		return day.Month() == start.Month() && day.Day() == start.Day()
	}
}

// Package ical translates calendar items to and from iCalendar (RFC 5545).
package ical

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

const (
	dateLayout     = "20060102"
	utcLayout      = "20060102T150405Z"
	floatingLayout = "20060102T150405"
)

var ErrInvalidRRule = errors.New("ical: invalid rrule")

// RuleError carries the human-readable reason an RRULE value was rejected.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return "ical: invalid rrule: " + e.Reason }

func (e *RuleError) Is(target error) bool { return target == ErrInvalidRRule }

func ruleErr(format string, args ...any) error {
	return &RuleError{Reason: fmt.Sprintf(format, args...)}
}

var weekdayCodes = [model.WeekDays]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var freqNames = map[model.RecurrenceType]string{
	model.RecurDaily:   "DAILY",
	model.RecurWeekly:  "WEEKLY",
	model.RecurMonthly: "MONTHLY",
	model.RecurYearly:  "YEARLY",
}

// EncodeRule renders rule as an RRULE value. Timed rules write UNTIL as a UTC
// date-time carrying the clock of start; untimed ones write a DATE.
func EncodeRule(rule model.Rule, start time.Time, timed bool) string {
	parts := []string{"FREQ=" + freqNames[rule.Type]}
	if rule.Freq > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(rule.Freq))
	}
	if rule.Bounded() {
		parts = append(parts, "UNTIL="+formatDay(rule.Until, start, timed))
	}
	if len(rule.ByMonth) > 0 {
		parts = append(parts, "BYMONTH="+joinInts(rule.ByMonth))
	}
	if len(rule.ByWeekday) > 0 {
		days := make([]string, 0, len(rule.ByWeekday))
		for _, v := range rule.ByWeekday {
			wd, ord := model.DecodeWeekday(v)
			if ord == 0 {
				days = append(days, weekdayCodes[wd])
			} else {
				days = append(days, fmt.Sprintf("%+d%s", ord, weekdayCodes[wd]))
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if len(rule.ByMonthDay) > 0 {
		parts = append(parts, "BYMONTHDAY="+joinInts(rule.ByMonthDay))
	}
	return strings.Join(parts, ";")
}

// EncodeExceptions renders exc as a comma-joined EXDATE value in the same
// form as DTSTART.
func EncodeExceptions(exc model.Exceptions, start time.Time, timed bool) string {
	days := exc.Days()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = formatDay(d, start, timed)
	}
	return strings.Join(out, ",")
}

func formatDay(day, start time.Time, timed bool) string {
	if !timed {
		return day.Format(dateLayout)
	}
	return date.At(day, start).UTC().Format(utcLayout)
}

// DecodeRule parses an RRULE value. Until holds the UNTIL instant in loc;
// UntilDay turns it into the inclusive day the model expects. The returned
// count is non-zero when the rule was bounded by COUNT instead.
func DecodeRule(value string, timed bool, loc *time.Location) (model.Rule, int, error) {
	var rule model.Rule
	fields := map[string]string{}
	for _, part := range strings.Split(strings.TrimSpace(value), ";") {
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return rule, 0, ruleErr("malformed rule part %q.", part)
		}
		fields[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	freq, ok := fields["FREQ"]
	if !ok {
		return rule, 0, ruleErr("frequency absent in rrule.")
	}
	switch strings.ToUpper(freq) {
	case "DAILY":
		rule.Type = model.RecurDaily
	case "WEEKLY":
		rule.Type = model.RecurWeekly
	case "MONTHLY":
		rule.Type = model.RecurMonthly
	case "YEARLY":
		rule.Type = model.RecurYearly
	default:
		return rule, 0, ruleErr("rrule frequency not supported.")
	}

	for _, unsupported := range []string{"BYSETPOS", "BYYEARDAY", "BYWEEKNO", "BYHOUR", "BYMINUTE", "BYSECOND"} {
		if _, ok := fields[unsupported]; ok {
			return rule, 0, ruleErr("rrule part %s not supported.", unsupported)
		}
	}
	if wkst, ok := fields["WKST"]; ok && !strings.EqualFold(wkst, "MO") {
		return rule, 0, ruleErr("week start %s not supported.", wkst)
	}

	rule.Freq = 1
	if v, ok := fields["INTERVAL"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return rule, 0, ruleErr("invalid interval.")
		}
		rule.Freq = n
	}

	until, hasUntil := fields["UNTIL"]
	countStr, hasCount := fields["COUNT"]
	if hasUntil && hasCount {
		return rule, 0, ruleErr("either until or count.")
	}
	if hasUntil {
		t, err := parseUntil(until, timed, loc)
		if err != nil {
			return rule, 0, ruleErr("invalid until format.")
		}
		rule.Until = t
	}
	count := 0
	if hasCount {
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 {
			return rule, 0, ruleErr("invalid count value.")
		}
		count = n
	}

	if v, ok := fields["BYMONTH"]; ok {
		months, err := parseInts(v, 1, 12, false)
		if err != nil {
			return rule, 0, ruleErr("invalid bymonth list.")
		}
		rule.ByMonth = months
	}
	if v, ok := fields["BYMONTHDAY"]; ok {
		days, err := parseInts(v, 1, 31, true)
		if err != nil {
			return rule, 0, ruleErr("invalid bymonthday list.")
		}
		rule.ByMonthDay = days
	}
	if v, ok := fields["BYDAY"]; ok {
		wdays, err := parseByDay(v)
		if err != nil {
			return rule, 0, ruleErr("invalid byday list.")
		}
		rule.ByWeekday = wdays
	}

	if err := rule.Validate(); err != nil {
		return rule, 0, ruleErr("%s.", strings.TrimPrefix(err.Error(), "model: "))
	}
	return rule, count, nil
}

// UntilDay converts the UNTIL instant of a decoded rule into an inclusive
// until day. A timed rule whose UNTIL falls earlier in the day than the
// item's clock ends on the previous day, provided the rule occurs on the
// UNTIL day at all.
func UntilDay(rule model.Rule, start time.Time, timed bool) model.Rule {
	if !rule.Bounded() {
		return rule
	}
	until := rule.Until
	rule.Until = date.DayStart(until)
	if !timed {
		return rule
	}
	if recur.OccursOn(rule, start, model.Exceptions{}, rule.Until) && date.Clock(until) < date.Clock(start) {
		rule.Until = date.AddDays(rule.Until, -1)
	}
	return rule
}

func parseUntil(v string, timed bool, loc *time.Location) (time.Time, error) {
	if len(v) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return time.Time{}, err
		}
		if timed {
			// A DATE bound on a timed rule covers the whole day.
			return date.EndOfDay(t), nil
		}
		return t, nil
	}
	return parseDateTime(v, "", loc)
}

func parseInts(v string, lo, hi int, allowNegative bool) ([]int, error) {
	var out []int
	for _, s := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		abs := n
		if abs < 0 && allowNegative {
			abs = -abs
		}
		if abs < lo || abs > hi {
			return nil, fmt.Errorf("value %d out of range", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseByDay(v string) ([]int, error) {
	var out []int
	for _, s := range strings.Split(v, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if len(s) < 2 {
			return nil, fmt.Errorf("short weekday %q", s)
		}
		code, prefix := s[len(s)-2:], s[:len(s)-2]
		wd := -1
		for i, c := range weekdayCodes {
			if c == code {
				wd = i
				break
			}
		}
		if wd < 0 {
			return nil, fmt.Errorf("unknown weekday %q", code)
		}
		ord := 0
		if prefix != "" {
			n, err := strconv.Atoi(prefix)
			if err != nil || n == 0 {
				return nil, fmt.Errorf("bad ordinal %q", prefix)
			}
			ord = n
		}
		out = append(out, model.EncodeWeekday(time.Weekday(wd), ord))
	}
	return out, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

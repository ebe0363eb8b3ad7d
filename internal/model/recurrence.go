package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurYearly  RecurrenceType = "yearly"
)

func (t RecurrenceType) IsValid() bool {
	switch t {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	default:
		return false
	}
}

// ParseRecurrenceType accepts the internal names and the RFC 5545 FREQ
// values.
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	t := RecurrenceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, s)
	}
	return t, nil
}

const WeekDays = 7

var (
	ErrInvalidRecurrenceType = errors.New("model: invalid recurrence type")
	ErrInvalidInterval       = errors.New("model: invalid recurrence interval")
	ErrInvalidByMonth        = errors.New("model: invalid bymonth value")
	ErrInvalidByMonthDay     = errors.New("model: invalid bymonthday value")
	ErrInvalidByWeekday      = errors.New("model: invalid byday value")
)

// Rule describes how an item repeats, anchored at the item's start day.
//
// Freq is the interval in units of Type. A zero Until means unbounded.
// ByWeekday entries pack an optional ordinal as sign*(weekday + ordinal*7)
// with Sunday as weekday 0; ordinal 0 selects every such weekday.
type Rule struct {
	Type       RecurrenceType
	Freq       int
	Until      time.Time
	ByMonth    []int
	ByWeekday  []int
	ByMonthDay []int
}

func (r Rule) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, r.Type)
	}
	if r.Freq < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Freq)
	}
	for _, m := range r.ByMonth {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: %d", ErrInvalidByMonth, m)
		}
	}
	if r.Type == RecurWeekly && len(r.ByMonthDay) > 0 {
		return fmt.Errorf("%w: not allowed on weekly rules", ErrInvalidByMonthDay)
	}
	for _, d := range r.ByMonthDay {
		if d == 0 || d < -31 || d > 31 {
			return fmt.Errorf("%w: %d", ErrInvalidByMonthDay, d)
		}
	}
	for _, v := range r.ByWeekday {
		_, ord := DecodeWeekday(v)
		switch {
		case ord == 0:
		case r.Type == RecurDaily || r.Type == RecurWeekly:
			return fmt.Errorf("%w: ordinal %d on %s rule", ErrInvalidByWeekday, ord, r.Type)
		case r.Type == RecurMonthly && (ord < -5 || ord > 5):
			return fmt.Errorf("%w: ordinal %d", ErrInvalidByWeekday, ord)
		case r.Type == RecurYearly && (ord < -53 || ord > 53):
			return fmt.Errorf("%w: ordinal %d", ErrInvalidByWeekday, ord)
		}
	}
	return nil
}

// HasFilters reports whether any BY* list is set.
func (r Rule) HasFilters() bool {
	return len(r.ByMonth) > 0 || len(r.ByWeekday) > 0 || len(r.ByMonthDay) > 0
}

func (r Rule) Bounded() bool {
	return !r.Until.IsZero()
}

// Duplicate returns a deep copy.
func (r Rule) Duplicate() Rule {
	out := r
	out.ByMonth = slices.Clone(r.ByMonth)
	out.ByWeekday = slices.Clone(r.ByWeekday)
	out.ByMonthDay = slices.Clone(r.ByMonthDay)
	return out
}

// EncodeWeekday packs weekday (0 = Sunday) and ordinal into a ByWeekday
// entry.
func EncodeWeekday(weekday time.Weekday, ordinal int) int {
	sign := 1
	if ordinal < 0 {
		sign = -1
		ordinal = -ordinal
	}
	return sign * (int(weekday) + ordinal*WeekDays)
}

// DecodeWeekday is the inverse of EncodeWeekday.
func DecodeWeekday(v int) (time.Weekday, int) {
	sign := 1
	if v < 0 {
		sign = -1
		v = -v
	}
	return time.Weekday(v % WeekDays), sign * (v / WeekDays)
}

// Describe renders the rule for display, e.g. "every 2 weeks on MO,WE".
func (r Rule) Describe() string {
	var b strings.Builder
	unit := map[RecurrenceType]string{
		RecurDaily:   "day",
		RecurWeekly:  "week",
		RecurMonthly: "month",
		RecurYearly:  "year",
	}[r.Type]
	if r.Freq > 1 {
		fmt.Fprintf(&b, "every %d %ss", r.Freq, unit)
	} else {
		fmt.Fprintf(&b, "every %s", unit)
	}
	if len(r.ByWeekday) > 0 {
		parts := make([]string, 0, len(r.ByWeekday))
		for _, v := range r.ByWeekday {
			wd, ord := DecodeWeekday(v)
			name := strings.ToUpper(wd.String()[:2])
			if ord != 0 {
				name = fmt.Sprintf("%+d%s", ord, name)
			}
			parts = append(parts, name)
		}
		b.WriteString(" on " + strings.Join(parts, ","))
	}
	if len(r.ByMonthDay) > 0 {
		b.WriteString(" days " + joinInts(r.ByMonthDay))
	}
	if len(r.ByMonth) > 0 {
		b.WriteString(" in months " + joinInts(r.ByMonth))
	}
	if r.Bounded() {
		b.WriteString(" until " + r.Until.Format("2006-01-02"))
	}
	return b.String()
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprint(n))
	}
	return strings.Join(parts, ",")
}

package model

import (
	"slices"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
)

// Exceptions is the set of days on which a recurring item is suppressed.
// Days are kept sorted and unique by civil date.
type Exceptions struct {
	days []time.Time
}

func NewExceptions(days ...time.Time) Exceptions {
	var e Exceptions
	for _, d := range days {
		e.Add(d)
	}
	return e
}

// Add inserts day. Adding a day twice is a no-op.
func (e *Exceptions) Add(day time.Time) {
	day = date.DayStart(day)
	i, found := e.search(day)
	if found {
		return
	}
	e.days = slices.Insert(e.days, i, day)
}

// Remove deletes day and reports whether it was present.
func (e *Exceptions) Remove(day time.Time) bool {
	i, found := e.search(date.DayStart(day))
	if !found {
		return false
	}
	e.days = slices.Delete(e.days, i, i+1)
	return true
}

func (e Exceptions) Contains(day time.Time) bool {
	_, found := e.search(date.DayStart(day))
	return found
}

func (e Exceptions) Len() int { return len(e.days) }

// Days returns a copy of the exception days in ascending order.
func (e Exceptions) Days() []time.Time {
	return slices.Clone(e.days)
}

func (e Exceptions) Duplicate() Exceptions {
	return Exceptions{days: slices.Clone(e.days)}
}

func (e Exceptions) search(day time.Time) (int, bool) {
	key := date.Key(day)
	return slices.BinarySearchFunc(e.days, key, func(d time.Time, k int) int {
		return date.Key(d) - k
	})
}

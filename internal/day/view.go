// Package day builds the ordered per-day view of the calendar and answers the
// busy-slice and next-appointment queries.
package day

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

type Kind int

const (
	KindEvent Kind = iota
	KindRecurEvent
	KindAppointment
	KindRecurAppointment
	KindHeading
	KindSeparator
	KindEmptyDay
	KindBlank
	KindEndOfDay
)

var kindNames = map[Kind]string{
	KindEvent:            "event",
	KindRecurEvent:       "recurring event",
	KindAppointment:      "appointment",
	KindRecurAppointment: "recurring appointment",
	KindHeading:          "heading",
	KindSeparator:        "separator",
	KindEmptyDay:         "empty day",
	KindBlank:            "blank",
	KindEndOfDay:         "end of day",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsItem reports whether k refers to a store entry rather than a marker.
func (k Kind) IsItem() bool { return k <= KindRecurAppointment }

func (k Kind) IsAppointment() bool { return k == KindAppointment || k == KindRecurAppointment }

func (k Kind) IsEvent() bool { return k == KindEvent || k == KindRecurEvent }

func (k Kind) IsRecurring() bool { return k == KindRecurEvent || k == KindRecurAppointment }

// Entry is one line of the day view. Display fields are copied under the
// store lock; the typed reference stays valid until the next rebuild.
type Entry struct {
	Kind  Kind
	Day   time.Time
	Start time.Time
	Order time.Time
	Dur   time.Duration
	State model.State
	Mesg  string
	Note  string
	Rule  string

	Event      *model.Event
	RecurEvent *model.RecurEvent
	Apt        *model.Appointment
	RecurApt   *model.RecurApt
}

// Ref returns the store entry behind e, or nil for markers and for the
// zero Entry.
func (e Entry) Ref() any {
	switch {
	case e.Kind == KindEvent && e.Event != nil:
		return e.Event
	case e.Kind == KindRecurEvent && e.RecurEvent != nil:
		return e.RecurEvent
	case e.Kind == KindAppointment && e.Apt != nil:
		return e.Apt
	case e.Kind == KindRecurAppointment && e.RecurApt != nil:
		return e.RecurApt
	default:
		return nil
	}
}

// End is the end of this occurrence.
func (e Entry) End() time.Time { return e.Start.Add(e.Dur) }

// Spanning reports whether the occurrence began before the entry's day.
func (e Entry) Spanning() bool { return e.Start.Before(e.Day) }

type Options struct {
	Captions  bool
	BlankLine bool
}

// Build returns the view of days consecutive days starting at startDay and
// the number of item entries in it. Items whose rule cannot be resolved are
// logged and left out.
func Build(cal *calendar.Calendar, startDay time.Time, days int, opts Options) ([]Entry, int) {
	var out []Entry
	count := 0
	d := date.DayStart(startDay.In(cal.Location()))
	for i := 0; i < days; i, d = i+1, date.NextDay(d) {
		if d.Year() > date.MaxYear {
			break
		}
		items := collect(cal, d)
		slices.SortStableFunc(items, compare)
		count += len(items)
		out = appendDay(out, d, items, opts)
	}
	return out, count
}

func appendDay(out []Entry, d time.Time, items []Entry, opts Options) []Entry {
	if !opts.Captions {
		return append(out, items...)
	}
	out = append(out, marker(KindHeading, d, d))

	apts, events := 0, 0
	for _, e := range items {
		if e.Kind.IsAppointment() {
			apts++
		} else {
			events++
		}
	}
	separated := apts == 0 || events == 0
	for i, e := range items {
		if !separated && i > 0 && e.Kind.IsAppointment() != items[i-1].Kind.IsAppointment() {
			out = append(out, marker(KindSeparator, d, e.Order))
			separated = true
		}
		out = append(out, e)
	}
	if len(items) == 0 {
		out = append(out, marker(KindEmptyDay, d, d))
	}
	end := date.EndOfDay(d)
	if opts.BlankLine && apts > 0 {
		out = append(out, marker(KindBlank, d, end))
	}
	return append(out, marker(KindEndOfDay, d, end))
}

func marker(k Kind, d, order time.Time) Entry {
	return Entry{Kind: k, Day: d, Start: order, Order: order}
}

// compare orders entries of one day by order, then appointments ahead of
// events, then true start, then flagged first, then message.
func compare(a, b Entry) int {
	if c := a.Order.Compare(b.Order); c != 0 {
		return c
	}
	aa, ba := a.Kind.IsAppointment(), b.Kind.IsAppointment()
	if aa != ba {
		if aa {
			return -1
		}
		return 1
	}
	if aa {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		an, bn := a.State.Has(model.StateNotify), b.State.Has(model.StateNotify)
		if an != bn {
			if an {
				return -1
			}
			return 1
		}
	}
	return cmp.Compare(a.Mesg, b.Mesg)
}

type unresolved struct {
	kind Kind
	mesg string
	err  error
}

// collect copies the items touching d out of the four stores. Each store is
// locked only for its own scan, and failures are logged after all locks are
// released.
func collect(cal *calendar.Calendar, d time.Time) []Entry {
	var (
		items  []Entry
		failed []unresolved
	)

	cal.RecurApts.ForEach(func(r *model.RecurApt) {
		guard(&failed, KindRecurAppointment, r.Mesg, r.Rule, func() {
			occ, ok := recur.FindSpanning(r.Rule, r.Start, r.Dur, r.Exc, d)
			if !ok {
				return
			}
			items = append(items, Entry{
				Kind: KindRecurAppointment, Day: d, Start: occ, Order: later(occ, d),
				Dur: r.Dur, State: r.State, Mesg: r.Mesg, Note: r.Note, Rule: r.Rule.Describe(),
				RecurApt: r,
			})
		})
	})
	cal.Apts.ForEach(func(a *model.Appointment) {
		if !calendar.AppointmentCovers(a, d) {
			return
		}
		items = append(items, Entry{
			Kind: KindAppointment, Day: d, Start: a.Start, Order: later(a.Start, d),
			Dur: a.Dur, State: a.State, Mesg: a.Mesg, Note: a.Note,
			Apt: a,
		})
	})
	cal.RecurEvents.ForEach(func(r *model.RecurEvent) {
		guard(&failed, KindRecurEvent, r.Mesg, r.Rule, func() {
			if !recur.OccursOn(r.Rule, r.Day, r.Exc, d) {
				return
			}
			items = append(items, Entry{
				Kind: KindRecurEvent, Day: d, Start: d, Order: d,
				Mesg: r.Mesg, Note: r.Note, Rule: r.Rule.Describe(),
				RecurEvent: r,
			})
		})
	})
	cal.Events.ForEach(func(e *model.Event) {
		if !calendar.EventCovers(e, d) {
			return
		}
		items = append(items, Entry{
			Kind: KindEvent, Day: d, Start: d, Order: d,
			Mesg: e.Mesg, Note: e.Note,
			Event: e,
		})
	})

	for _, f := range failed {
		log.Warn("item omitted from day view", "kind", f.kind.String(), "mesg", f.mesg, "day", d.Format("2006-01-02"), "err", f.err)
	}
	return items
}

// guard skips items with an invalid rule and turns a resolution panic into a
// logged omission.
func guard(failed *[]unresolved, k Kind, mesg string, rule model.Rule, fn func()) {
	if err := rule.Validate(); err != nil {
		*failed = append(*failed, unresolved{kind: k, mesg: mesg, err: err})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			*failed = append(*failed, unresolved{kind: k, mesg: mesg, err: fmt.Errorf("resolution panic: %v", r)})
		}
	}()
	fn()
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

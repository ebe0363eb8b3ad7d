package day

import (
	"time"

	"github.com/samber/mo"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

// Lookahead is the window NextUpcoming searches.
const Lookahead = 24 * time.Hour

// Upcoming is the next appointment occurrence.
type Upcoming struct {
	Start    time.Time
	Dur      time.Duration
	State    model.State
	Mesg     string
	Apt      *model.Appointment
	RecurApt *model.RecurApt
}

func (u Upcoming) Ref() any {
	if u.Apt != nil {
		return u.Apt
	}
	return u.RecurApt
}

func (u Upcoming) Recurring() bool { return u.RecurApt != nil }

// NextUpcoming returns the earliest appointment occurrence starting in
// [from, from+Lookahead).
func NextUpcoming(cal *calendar.Calendar, from time.Time) mo.Option[Upcoming] {
	return NextUpcomingMatching(cal, from, nil)
}

// NextUpcomingMatching is NextUpcoming restricted to occurrences keep
// accepts. The earliest recurring and one-off candidates are compared and a
// tie goes to the one-off appointment.
func NextUpcomingMatching(cal *calendar.Calendar, from time.Time, keep func(Upcoming) bool) mo.Option[Upcoming] {
	from = from.In(cal.Location())
	limit := from.Add(Lookahead)
	accept := func(u Upcoming) bool {
		if u.Start.Before(from) || !u.Start.Before(limit) {
			return false
		}
		return keep == nil || keep(u)
	}

	var oneOff, recurring mo.Option[Upcoming]
	cal.Apts.ForEach(func(a *model.Appointment) {
		if oneOff.IsPresent() {
			return
		}
		u := Upcoming{Start: a.Start, Dur: a.Dur, State: a.State, Mesg: a.Mesg, Apt: a}
		if accept(u) {
			oneOff = mo.Some(u)
		}
	})

	today := date.DayStart(from)
	days := []time.Time{today, date.NextDay(today)}
	cal.RecurApts.ForEach(func(r *model.RecurApt) {
		if r.Rule.Validate() != nil {
			return
		}
		for _, d := range days {
			occ, ok := recur.FindOccurrence(r.Rule, r.Start, r.Exc, d)
			if !ok {
				continue
			}
			u := Upcoming{Start: occ, Dur: r.Dur, State: r.State, Mesg: r.Mesg, RecurApt: r}
			if !accept(u) {
				continue
			}
			if best, ok := recurring.Get(); !ok || u.Start.Before(best.Start) {
				recurring = mo.Some(u)
			}
			break
		}
	})

	o, hasOneOff := oneOff.Get()
	r, hasRecur := recurring.Get()
	switch {
	case hasOneOff && hasRecur:
		if r.Start.Before(o.Start) {
			return recurring
		}
		return oneOff
	case hasOneOff:
		return oneOff
	default:
		return recurring
	}
}

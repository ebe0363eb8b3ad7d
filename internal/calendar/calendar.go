// Package calendar holds the four item stores and the operations that touch
// more than one of them. When several stores are locked together the order is
// always recurring appointments, appointments, recurring events, events.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

var (
	ErrNotInStore     = errors.New("calendar: item not in store")
	ErrUnsupportedRef = errors.New("calendar: unsupported item reference")
	ErrNotRecurring   = errors.New("calendar: item is not recurring")
	ErrNotTimed       = errors.New("calendar: item is not an appointment")
)

type Calendar struct {
	RecurApts   *Store[model.RecurApt]
	Apts        *Store[model.Appointment]
	RecurEvents *Store[model.RecurEvent]
	Events      *Store[model.Event]

	loc *time.Location

	hookMu sync.Mutex
	hooks  []func()
}

// New returns an empty calendar whose days are civil days in loc.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{
		RecurApts:   NewStore(model.RecurAptLess, RecurAptCovers),
		Apts:        NewStore(model.AppointmentLess, AppointmentCovers),
		RecurEvents: NewStore(model.RecurEventLess, RecurEventCovers),
		Events:      NewStore(model.EventLess, EventCovers),
		loc:         loc,
	}
	c.RecurApts.onChange = c.changed
	c.Apts.onChange = c.changed
	c.RecurEvents.onChange = c.changed
	c.Events.onChange = c.changed
	return c
}

func (c *Calendar) Location() *time.Location { return c.loc }

// OnChange registers fn to run after every store mutation, outside any store
// lock.
func (c *Calendar) OnChange(fn func()) {
	c.hookMu.Lock()
	c.hooks = append(c.hooks, fn)
	c.hookMu.Unlock()
}

func (c *Calendar) changed() {
	c.hookMu.Lock()
	hooks := append([]func(){}, c.hooks...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Len returns the total number of items across all stores.
func (c *Calendar) Len() int {
	return c.RecurApts.Len() + c.Apts.Len() + c.RecurEvents.Len() + c.Events.Len()
}

func EventCovers(e *model.Event, day time.Time) bool {
	return date.SameDay(e.Day, day)
}

// AppointmentCovers reports whether a's interval intersects day. A point
// appointment covers only the day it starts on.
func AppointmentCovers(a *model.Appointment, day time.Time) bool {
	start := date.DayStart(day)
	next := date.NextDay(start)
	if !a.Start.Before(next) {
		return false
	}
	if !a.Start.Before(start) {
		return true
	}
	return a.End().After(start)
}

func RecurEventCovers(r *model.RecurEvent, day time.Time) bool {
	return recur.OccursOn(r.Rule, r.Day, r.Exc, day)
}

func RecurAptCovers(r *model.RecurApt, day time.Time) bool {
	_, ok := recur.FindSpanning(r.Rule, r.Start, r.Dur, r.Exc, day)
	return ok
}

func (c *Calendar) AddEvent(ev model.Event) (*model.Event, error) {
	ev.Day = date.DayStart(ev.Day.In(c.loc))
	ev.Mesg = strings.TrimSpace(ev.Mesg)
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	p := &ev
	c.Events.Insert(p)
	return p, nil
}

func (c *Calendar) AddAppointment(apt model.Appointment) (*model.Appointment, error) {
	apt.Start = apt.Start.In(c.loc)
	apt.Mesg = strings.TrimSpace(apt.Mesg)
	if err := apt.Validate(); err != nil {
		return nil, err
	}
	p := &apt
	c.Apts.Insert(p)
	return p, nil
}

// AddRecurEvent inserts r after checking that its rule occurs on its day.
func (c *Calendar) AddRecurEvent(r model.RecurEvent) (*model.RecurEvent, error) {
	r = r.Duplicate()
	r.Day = date.DayStart(r.Day.In(c.loc))
	r.Mesg = strings.TrimSpace(r.Mesg)
	if r.Rule.Bounded() {
		r.Rule.Until = date.DayStart(r.Rule.Until.In(c.loc))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := recur.CheckStartDay(r.Rule, r.Day); err != nil {
		return nil, err
	}
	p := &r
	c.RecurEvents.Insert(p)
	return p, nil
}

func (c *Calendar) AddRecurApt(r model.RecurApt) (*model.RecurApt, error) {
	r = r.Duplicate()
	r.Start = r.Start.In(c.loc)
	r.Mesg = strings.TrimSpace(r.Mesg)
	if r.Rule.Bounded() {
		r.Rule.Until = date.DayStart(r.Rule.Until.In(c.loc))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := recur.CheckStartDay(r.Rule, r.Start); err != nil {
		return nil, err
	}
	p := &r
	c.RecurApts.Insert(p)
	return p, nil
}

// Delete removes the item ref points to.
func (c *Calendar) Delete(ref any) error {
	var ok bool
	switch it := ref.(type) {
	case *model.RecurApt:
		ok = c.RecurApts.Remove(it)
	case *model.Appointment:
		ok = c.Apts.Remove(it)
	case *model.RecurEvent:
		ok = c.RecurEvents.Remove(it)
	case *model.Event:
		ok = c.Events.Remove(it)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedRef, ref)
	}
	if !ok {
		return ErrNotInStore
	}
	return nil
}

// DeleteOccurrence suppresses the occurrence of a recurring item on day by
// adding an exception. One-off items are deleted outright.
func (c *Calendar) DeleteOccurrence(ref any, day time.Time) error {
	switch it := ref.(type) {
	case *model.RecurApt:
		return c.RecurApts.Update(it, func(r *model.RecurApt) error {
			r.Exc.Add(date.DayStart(day.In(c.loc)))
			return nil
		})
	case *model.RecurEvent:
		return c.RecurEvents.Update(it, func(r *model.RecurEvent) error {
			r.Exc.Add(date.DayStart(day.In(c.loc)))
			return nil
		})
	default:
		return c.Delete(ref)
	}
}

// RestoreOccurrence removes the exception for day, reporting whether one was
// present.
func (c *Calendar) RestoreOccurrence(ref any, day time.Time) (bool, error) {
	var removed bool
	var err error
	switch it := ref.(type) {
	case *model.RecurApt:
		err = c.RecurApts.Update(it, func(r *model.RecurApt) error {
			removed = r.Exc.Remove(day.In(c.loc))
			return nil
		})
	case *model.RecurEvent:
		err = c.RecurEvents.Update(it, func(r *model.RecurEvent) error {
			removed = r.Exc.Remove(day.In(c.loc))
			return nil
		})
	default:
		err = fmt.Errorf("%w: %T", ErrNotRecurring, ref)
	}
	return removed, err
}

// SetRule replaces the rule of a recurring item. An edit that would not
// occur on the item's start day is rejected and the previous rule kept.
func (c *Calendar) SetRule(ref any, rule model.Rule) error {
	rule = rule.Duplicate()
	if rule.Bounded() {
		rule.Until = date.DayStart(rule.Until.In(c.loc))
	}
	switch it := ref.(type) {
	case *model.RecurApt:
		return c.RecurApts.Update(it, func(r *model.RecurApt) error {
			if err := recur.CheckStartDay(rule, r.Start); err != nil {
				return err
			}
			r.Rule = rule
			return nil
		})
	case *model.RecurEvent:
		return c.RecurEvents.Update(it, func(r *model.RecurEvent) error {
			if err := recur.CheckStartDay(rule, r.Day); err != nil {
				return err
			}
			r.Rule = rule
			return nil
		})
	default:
		return fmt.Errorf("%w: %T", ErrNotRecurring, ref)
	}
}

// ToggleNotify flips the notify flag of an appointment and clears its
// notified bit so a re-flagged item can fire again.
func (c *Calendar) ToggleNotify(ref any) error {
	flip := func(a *model.Appointment) {
		a.State ^= model.StateNotify
		a.State &^= model.StateNotified
	}
	switch it := ref.(type) {
	case *model.RecurApt:
		return c.RecurApts.Update(it, func(r *model.RecurApt) error {
			flip(&r.Appointment)
			return nil
		})
	case *model.Appointment:
		return c.Apts.Update(it, func(a *model.Appointment) error {
			flip(a)
			return nil
		})
	default:
		return fmt.Errorf("%w: %T", ErrNotTimed, ref)
	}
}

// MarkNotified sets the notified bit of a one-off appointment. It reports
// false when the bit was already set.
func (c *Calendar) MarkNotified(apt *model.Appointment) (bool, error) {
	first := false
	err := c.Apts.Update(apt, func(a *model.Appointment) error {
		first = !a.State.Has(model.StateNotified)
		a.State |= model.StateNotified
		return nil
	})
	return first, err
}

// SetNote attaches a note reference to any item. An empty note detaches.
func (c *Calendar) SetNote(ref any, note string) error {
	switch it := ref.(type) {
	case *model.RecurApt:
		return c.RecurApts.Update(it, func(r *model.RecurApt) error { r.Note = note; return nil })
	case *model.Appointment:
		return c.Apts.Update(it, func(a *model.Appointment) error { a.Note = note; return nil })
	case *model.RecurEvent:
		return c.RecurEvents.Update(it, func(r *model.RecurEvent) error { r.Note = note; return nil })
	case *model.Event:
		return c.Events.Update(it, func(e *model.Event) error { e.Note = note; return nil })
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedRef, ref)
	}
}

// Repeat converts a one-off item into a recurring one anchored at the same
// start. Both stores stay locked for the whole move, so the item is never
// visible in both or in neither. It returns the new reference.
func (c *Calendar) Repeat(ref any, rule model.Rule) (any, error) {
	rule = rule.Duplicate()
	if rule.Bounded() {
		rule.Until = date.DayStart(rule.Until.In(c.loc))
	}
	switch it := ref.(type) {
	case *model.Appointment:
		c.RecurApts.mu.Lock()
		c.Apts.mu.Lock()
		out, err := func() (*model.RecurApt, error) {
			if !c.Apts.removeLocked(it) {
				return nil, ErrNotInStore
			}
			r := &model.RecurApt{Appointment: *it, Rule: rule}
			r.State &^= model.StateNotified
			if err := recur.CheckStartDay(rule, r.Start); err != nil {
				c.Apts.insertLocked(it)
				return nil, err
			}
			c.RecurApts.insertLocked(r)
			return r, nil
		}()
		c.Apts.mu.Unlock()
		c.RecurApts.mu.Unlock()
		if err != nil {
			return nil, err
		}
		c.changed()
		return out, nil
	case *model.Event:
		c.RecurEvents.mu.Lock()
		c.Events.mu.Lock()
		out, err := func() (*model.RecurEvent, error) {
			if !c.Events.removeLocked(it) {
				return nil, ErrNotInStore
			}
			r := &model.RecurEvent{Event: *it, Rule: rule}
			if err := recur.CheckStartDay(rule, r.Day); err != nil {
				c.Events.insertLocked(it)
				return nil, err
			}
			c.RecurEvents.insertLocked(r)
			return r, nil
		}()
		c.Events.mu.Unlock()
		c.RecurEvents.mu.Unlock()
		if err != nil {
			return nil, err
		}
		c.changed()
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRef, ref)
	}
}

// Unrepeat converts a recurring item back into a one-off item at its
// original start, dropping the rule and exceptions.
func (c *Calendar) Unrepeat(ref any) (any, error) {
	switch it := ref.(type) {
	case *model.RecurApt:
		c.RecurApts.mu.Lock()
		c.Apts.mu.Lock()
		var out *model.Appointment
		ok := c.RecurApts.removeLocked(it)
		if ok {
			apt := it.Appointment
			out = &apt
			c.Apts.insertLocked(out)
		}
		c.Apts.mu.Unlock()
		c.RecurApts.mu.Unlock()
		if !ok {
			return nil, ErrNotInStore
		}
		c.changed()
		return out, nil
	case *model.RecurEvent:
		c.RecurEvents.mu.Lock()
		c.Events.mu.Lock()
		var out *model.Event
		ok := c.RecurEvents.removeLocked(it)
		if ok {
			ev := it.Event
			out = &ev
			c.Events.insertLocked(out)
		}
		c.Events.mu.Unlock()
		c.RecurEvents.mu.Unlock()
		if !ok {
			return nil, ErrNotInStore
		}
		c.changed()
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotRecurring, ref)
	}
}

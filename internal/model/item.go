package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("model: invalid appointment duration")

// State is the notification bitset of an appointment.
type State uint8

const (
	StateNotify State = 1 << iota
	StateNotified
)

func (s State) Has(flag State) bool { return s&flag != 0 }

// Event is a one-off all-day item.
type Event struct {
	ID   int
	Day  time.Time
	Mesg string
	Note string
}

func (e Event) Validate() error {
	if e.Day.IsZero() {
		return errors.New("model: event day is required")
	}
	if strings.TrimSpace(e.Mesg) == "" {
		return errors.New("model: event message is required")
	}
	return nil
}

// Appointment is a one-off timed item. Dur may be zero.
type Appointment struct {
	Start time.Time
	Dur   time.Duration
	State State
	Mesg  string
	Note  string
}

func (a Appointment) Validate() error {
	if a.Start.IsZero() {
		return errors.New("model: appointment start is required")
	}
	if a.Dur < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, a.Dur)
	}
	if strings.TrimSpace(a.Mesg) == "" {
		return errors.New("model: appointment message is required")
	}
	return nil
}

func (a Appointment) End() time.Time {
	return a.Start.Add(a.Dur)
}

type RecurEvent struct {
	Event
	Rule Rule
	Exc  Exceptions
}

func (r RecurEvent) Validate() error {
	if err := r.Event.Validate(); err != nil {
		return err
	}
	return r.Rule.Validate()
}

// Duplicate returns a copy that shares no slices with r.
func (r RecurEvent) Duplicate() RecurEvent {
	out := r
	out.Rule = r.Rule.Duplicate()
	out.Exc = r.Exc.Duplicate()
	return out
}

type RecurApt struct {
	Appointment
	Rule Rule
	Exc  Exceptions
}

func (r RecurApt) Validate() error {
	if err := r.Appointment.Validate(); err != nil {
		return err
	}
	return r.Rule.Validate()
}

func (r RecurApt) Duplicate() RecurApt {
	out := r
	out.Rule = r.Rule.Duplicate()
	out.Exc = r.Exc.Duplicate()
	return out
}

// EventLess orders events by day, then id, then message.
func EventLess(a, b *Event) bool {
	if !a.Day.Equal(b.Day) {
		return a.Day.Before(b.Day)
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Mesg < b.Mesg
}

// AppointmentLess orders appointments by start, flagged first, then message.
func AppointmentLess(a, b *Appointment) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if fa, fb := a.State.Has(StateNotify), b.State.Has(StateNotify); fa != fb {
		return fa
	}
	return a.Mesg < b.Mesg
}

func RecurEventLess(a, b *RecurEvent) bool {
	return EventLess(&a.Event, &b.Event)
}

func RecurAptLess(a, b *RecurApt) bool {
	return AppointmentLess(&a.Appointment, &b.Appointment)
}

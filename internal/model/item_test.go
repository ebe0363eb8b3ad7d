package model

import (
	"errors"
	"testing"
	"time"
)

func TestAppointmentValidate(t *testing.T) {
	start := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	ok := Appointment{Start: start, Dur: time.Hour, Mesg: "Standup"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid appointment, got %v", err)
	}
	if got := ok.End(); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected end %s", got)
	}

	bad := ok
	bad.Dur = -time.Minute
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	bad = ok
	bad.Mesg = "  "
	if err := bad.Validate(); err == nil {
		t.Fatal("expected missing message error")
	}
}

func TestEventValidate(t *testing.T) {
	ev := Event{Day: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), Mesg: "Holiday"}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
	ev.Day = time.Time{}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected missing day error")
	}
}

func TestRecurringValidateChecksRule(t *testing.T) {
	r := RecurApt{
		Appointment: Appointment{Start: time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), Mesg: "Gym"},
		Rule:        Rule{Type: RecurWeekly, Freq: 0},
	}
	if err := r.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestAppointmentOrdering(t *testing.T) {
	at := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	flagged := &Appointment{Start: at, Mesg: "b", State: StateNotify}
	plain := &Appointment{Start: at, Mesg: "a"}
	earlier := &Appointment{Start: at.Add(-time.Minute), Mesg: "z"}

	if !AppointmentLess(earlier, flagged) {
		t.Fatal("earlier start must sort first")
	}
	if !AppointmentLess(flagged, plain) {
		t.Fatal("flagged appointment must sort before unflagged at the same start")
	}
	if !AppointmentLess(plain, &Appointment{Start: at, Mesg: "b"}) {
		t.Fatal("message breaks remaining ties")
	}
}

func TestRecurDuplicateIsDeep(t *testing.T) {
	r := RecurEvent{
		Event: Event{Day: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Mesg: "New year"},
		Rule:  Rule{Type: RecurYearly, Freq: 1, ByMonth: []int{1}},
		Exc:   NewExceptions(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	cp := r.Duplicate()
	cp.Rule.ByMonth[0] = 2
	cp.Exc.Add(time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC))
	if r.Rule.ByMonth[0] != 1 || r.Exc.Len() != 1 {
		t.Fatalf("duplicate shares state with original: %+v", r)
	}
}

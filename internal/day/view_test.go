package day

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/model"
)

func at(d, h, m int) time.Time {
	return time.Date(2026, time.October, d, h, m, 0, 0, time.UTC)
}

func kinds(entries []Entry) []Kind {
	out := make([]Kind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

func TestWeeklyWithExceptionOverFiveWeeks(t *testing.T) {
	cal := calendar.New(time.UTC)
	r, err := cal.AddRecurApt(model.RecurApt{
		Appointment: model.Appointment{Start: at(5, 10, 0), Dur: time.Hour, Mesg: "weekly sync"},
		Rule:        model.Rule{Type: model.RecurWeekly, Freq: 1},
	})
	require.NoError(t, err)
	require.NoError(t, cal.DeleteOccurrence(r, at(19, 0, 0)))

	entries, n := Build(cal, at(5, 0, 0), 35, Options{})
	assert.Equal(t, 4, n)
	require.Len(t, entries, 4)
	var days []int
	for _, e := range entries {
		days = append(days, e.Start.Day())
		assert.Same(t, r, e.Ref())
	}
	assert.Equal(t, []int{5, 12, 26, 2}, days)
}

func TestOrderingWithinDay(t *testing.T) {
	cal := calendar.New(time.UTC)
	_, err := cal.AddEvent(model.Event{Day: at(19, 0, 0), Mesg: "b holiday"})
	require.NoError(t, err)
	_, err = cal.AddEvent(model.Event{Day: at(19, 0, 0), Mesg: "a birthday"})
	require.NoError(t, err)
	_, err = cal.AddAppointment(model.Appointment{Start: at(19, 14, 0), Dur: time.Hour, Mesg: "later"})
	require.NoError(t, err)
	_, err = cal.AddAppointment(model.Appointment{Start: at(19, 9, 0), Dur: time.Hour, Mesg: "plain"})
	require.NoError(t, err)
	_, err = cal.AddAppointment(model.Appointment{Start: at(19, 9, 0), Dur: time.Hour, Mesg: "zz flagged", State: model.StateNotify})
	require.NoError(t, err)
	_, err = cal.AddAppointment(model.Appointment{Start: at(18, 22, 0), Dur: 3 * time.Hour, Mesg: "overnight"})
	require.NoError(t, err)

	entries, n := Build(cal, at(19, 0, 0), 1, Options{})
	require.Equal(t, 6, n)
	var got []string
	for _, e := range entries {
		got = append(got, e.Mesg)
	}
	assert.Equal(t, []string{"overnight", "a birthday", "b holiday", "zz flagged", "plain", "later"}, got)
	assert.Equal(t, at(19, 0, 0), entries[0].Order)
	assert.Equal(t, at(18, 22, 0), entries[0].Start)
	assert.True(t, entries[0].Spanning())
}

func TestCaptionsAndMarkers(t *testing.T) {
	cal := calendar.New(time.UTC)
	_, err := cal.AddEvent(model.Event{Day: at(19, 0, 0), Mesg: "holiday"})
	require.NoError(t, err)
	_, err = cal.AddAppointment(model.Appointment{Start: at(19, 9, 0), Dur: time.Hour, Mesg: "standup"})
	require.NoError(t, err)

	entries, n := Build(cal, at(19, 0, 0), 2, Options{Captions: true, BlankLine: true})
	assert.Equal(t, 2, n)
	assert.Equal(t, []Kind{
		KindHeading, KindEvent, KindSeparator, KindAppointment, KindBlank, KindEndOfDay,
		KindHeading, KindEmptyDay, KindEndOfDay,
	}, kinds(entries))

	entries, _ = Build(cal, at(19, 0, 0), 1, Options{Captions: true})
	assert.Equal(t, []Kind{KindHeading, KindEvent, KindSeparator, KindAppointment, KindEndOfDay}, kinds(entries))
}

func TestRecurringEventsAndSpanningRecurringAppointments(t *testing.T) {
	cal := calendar.New(time.UTC)
	_, err := cal.AddRecurEvent(model.RecurEvent{
		Event: model.Event{Day: at(1, 0, 0), Mesg: "payday"},
		Rule:  model.Rule{Type: model.RecurMonthly, Freq: 1, ByMonthDay: []int{1, 19}},
	})
	require.NoError(t, err)
	r, err := cal.AddRecurApt(model.RecurApt{
		Appointment: model.Appointment{Start: at(18, 23, 0), Dur: 2 * time.Hour, Mesg: "night shift"},
		Rule:        model.Rule{Type: model.RecurDaily, Freq: 7},
	})
	require.NoError(t, err)

	entries, n := Build(cal, at(19, 0, 0), 1, Options{})
	require.Equal(t, 2, n)
	assert.Equal(t, KindRecurAppointment, entries[0].Kind)
	assert.Equal(t, at(18, 23, 0), entries[0].Start)
	assert.Equal(t, at(19, 0, 0), entries[0].Order)
	assert.Same(t, r, entries[0].RecurApt)
	assert.Equal(t, KindRecurEvent, entries[1].Kind)
	assert.Equal(t, "every month days 1,19", entries[1].Rule)
}

func TestInvalidRuleIsOmitted(t *testing.T) {
	cal := calendar.New(time.UTC)
	r, err := cal.AddRecurEvent(model.RecurEvent{
		Event: model.Event{Day: at(19, 0, 0), Mesg: "broken"},
		Rule:  model.Rule{Type: model.RecurDaily, Freq: 1},
	})
	require.NoError(t, err)
	require.NoError(t, cal.RecurEvents.Update(r, func(x *model.RecurEvent) error {
		x.Rule.Freq = 0
		return nil
	}))
	_, err = cal.AddEvent(model.Event{Day: at(19, 0, 0), Mesg: "fine"})
	require.NoError(t, err)

	entries, n := Build(cal, at(19, 0, 0), 1, Options{})
	require.Equal(t, 1, n)
	assert.Equal(t, "fine", entries[0].Mesg)
}

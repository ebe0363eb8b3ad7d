package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
)

const dayLayout = "2006-01-02"

// ItemsFromCalendar copies every item of cal into rows with fresh ids. Each
// store is read under its own lock.
func ItemsFromCalendar(cal *calendar.Calendar, now time.Time) []Item {
	out := make([]Item, 0, cal.Len())
	row := func(kind string) Item {
		return Item{ID: uuid.NewString(), Kind: kind, CreatedAt: now}
	}
	cal.RecurApts.ForEach(func(r *model.RecurApt) {
		it := row(KindRecurAppointment)
		start := r.Start
		it.StartAt, it.Duration, it.State, it.Mesg, it.Note = &start, r.Dur, int(r.State), r.Mesg, r.Note
		it.Rule, it.Exceptions = ruleRow(r.Rule), exceptionRows(r.Exc)
		out = append(out, it)
	})
	cal.Apts.ForEach(func(a *model.Appointment) {
		it := row(KindAppointment)
		start := a.Start
		it.StartAt, it.Duration, it.State, it.Mesg, it.Note = &start, a.Dur, int(a.State), a.Mesg, a.Note
		out = append(out, it)
	})
	cal.RecurEvents.ForEach(func(r *model.RecurEvent) {
		it := row(KindRecurEvent)
		it.Day, it.EventID, it.Mesg, it.Note = r.Day.Format(dayLayout), r.ID, r.Mesg, r.Note
		it.Rule, it.Exceptions = ruleRow(r.Rule), exceptionRows(r.Exc)
		out = append(out, it)
	})
	cal.Events.ForEach(func(e *model.Event) {
		it := row(KindEvent)
		it.Day, it.EventID, it.Mesg, it.Note = e.Day.Format(dayLayout), e.ID, e.Mesg, e.Note
		out = append(out, it)
	})
	return out
}

func ruleRow(r model.Rule) *Rule {
	out := &Rule{
		Type:       string(r.Type),
		Interval:   r.Freq,
		ByMonth:    append([]int(nil), r.ByMonth...),
		ByWeekday:  append([]int(nil), r.ByWeekday...),
		ByMonthDay: append([]int(nil), r.ByMonthDay...),
	}
	if r.Bounded() {
		out.UntilDay = r.Until.Format(dayLayout)
	}
	return out
}

func exceptionRows(exc model.Exceptions) []string {
	days := exc.Days()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(dayLayout)
	}
	return out
}

// SaveCalendar replaces the stored calendar with the contents of cal.
func SaveCalendar(ctx context.Context, repo Repository, cal *calendar.Calendar) (int, error) {
	items := ItemsFromCalendar(cal, time.Now())
	if err := repo.ReplaceItems(ctx, items); err != nil {
		return 0, fmt.Errorf("save calendar: %w", err)
	}
	log.Debug("calendar saved", "items", len(items))
	return len(items), nil
}

type LoadStats struct {
	Loaded   int
	Rejected int
}

// LoadCalendar adds every stored item to cal. Rows that no longer validate
// are logged and skipped.
func LoadCalendar(ctx context.Context, repo Repository, cal *calendar.Calendar) (LoadStats, error) {
	var stats LoadStats
	items, err := repo.ListItems(ctx, ItemListFilter{})
	if err != nil {
		return stats, fmt.Errorf("load calendar: %w", err)
	}
	for _, it := range items {
		if err := addItem(cal, it); err != nil {
			stats.Rejected++
			log.Warn("stored item rejected", "id", it.ID, "kind", it.Kind, "err", err)
			continue
		}
		stats.Loaded++
	}
	log.Info("calendar loaded", "items", stats.Loaded, "rejected", stats.Rejected)
	return stats, nil
}

func addItem(cal *calendar.Calendar, it Item) error {
	loc := cal.Location()
	var day, start time.Time
	switch it.Kind {
	case KindEvent, KindRecurEvent:
		d, err := time.ParseInLocation(dayLayout, it.Day, loc)
		if err != nil {
			return fmt.Errorf("day %q: %w", it.Day, err)
		}
		day = d
	case KindAppointment, KindRecurAppointment:
		if it.StartAt == nil {
			return fmt.Errorf("appointment without start")
		}
		start = it.StartAt.In(loc)
	default:
		return fmt.Errorf("unknown kind %q", it.Kind)
	}

	var (
		rule model.Rule
		exc  model.Exceptions
	)
	if it.Recurring() {
		if it.Rule == nil {
			return fmt.Errorf("recurring item without rule")
		}
		r, err := modelRule(*it.Rule, loc)
		if err != nil {
			return err
		}
		rule = r
		for _, s := range it.Exceptions {
			d, err := time.ParseInLocation(dayLayout, s, loc)
			if err != nil {
				return fmt.Errorf("exception %q: %w", s, err)
			}
			exc.Add(d)
		}
	}

	apt := model.Appointment{Start: start, Dur: it.Duration, State: model.State(it.State), Mesg: it.Mesg, Note: it.Note}
	ev := model.Event{ID: it.EventID, Day: day, Mesg: it.Mesg, Note: it.Note}
	var err error
	switch it.Kind {
	case KindEvent:
		_, err = cal.AddEvent(ev)
	case KindAppointment:
		_, err = cal.AddAppointment(apt)
	case KindRecurEvent:
		_, err = cal.AddRecurEvent(model.RecurEvent{Event: ev, Rule: rule, Exc: exc})
	case KindRecurAppointment:
		_, err = cal.AddRecurApt(model.RecurApt{Appointment: apt, Rule: rule, Exc: exc})
	}
	return err
}

func modelRule(r Rule, loc *time.Location) (model.Rule, error) {
	t, err := model.ParseRecurrenceType(r.Type)
	if err != nil {
		return model.Rule{}, err
	}
	out := model.Rule{
		Type:       t,
		Freq:       r.Interval,
		ByMonth:    r.ByMonth,
		ByWeekday:  r.ByWeekday,
		ByMonthDay: r.ByMonthDay,
	}
	if r.UntilDay != "" {
		until, err := time.ParseInLocation(dayLayout, r.UntilDay, loc)
		if err != nil {
			return model.Rule{}, fmt.Errorf("until %q: %w", r.UntilDay, err)
		}
		out.Until = until
	}
	return out, nil
}

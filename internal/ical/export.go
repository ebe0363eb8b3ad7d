package ical

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
)

var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/sandeepkv93/agenda"))

type ExportOptions struct {
	// Notes resolves note references. When nil notes are exported as is.
	Notes NoteStore
	// Product names the PRODID. Empty means "agenda".
	Product string
	// AlarmLead is how long before a flagged appointment its alarm fires.
	AlarmLead time.Duration
	// Now stamps DTSTAMP. Nil means time.Now.
	Now func() time.Time
}

// exported is an item copied out of its store for serialization.
type exported struct {
	timed bool
	start time.Time
	dur   time.Duration
	state model.State
	mesg  string
	note  string
	rule  *model.Rule
	exc   model.Exceptions
}

// Export writes every item of cal as one VEVENT: recurring events, events,
// recurring appointments, then appointments.
func Export(cal *calendar.Calendar, w io.Writer, opts ExportOptions) error {
	if opts.Product == "" {
		opts.Product = "agenda"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var items []exported
	cal.RecurEvents.ForEach(func(r *model.RecurEvent) {
		rule := r.Rule.Duplicate()
		items = append(items, exported{start: r.Day, mesg: r.Mesg, note: r.Note, rule: &rule, exc: r.Exc.Duplicate()})
	})
	cal.Events.ForEach(func(e *model.Event) {
		items = append(items, exported{start: e.Day, mesg: e.Mesg, note: e.Note})
	})
	cal.RecurApts.ForEach(func(r *model.RecurApt) {
		rule := r.Rule.Duplicate()
		items = append(items, exported{
			timed: true, start: r.Start, dur: r.Dur, state: r.State,
			mesg: r.Mesg, note: r.Note, rule: &rule, exc: r.Exc.Duplicate(),
		})
	})
	cal.Apts.ForEach(func(a *model.Appointment) {
		items = append(items, exported{timed: true, start: a.Start, dur: a.Dur, state: a.State, mesg: a.Mesg, note: a.Note})
	})

	out := ics.NewCalendarFor(opts.Product)
	stamp := opts.Now().UTC()
	seen := make(map[uuid.UUID]int)
	for _, it := range items {
		uid := itemUID(it, seen)
		ev := out.AddEvent(uid.String())
		ev.SetDtStampTime(stamp)
		if it.timed {
			ev.SetStartAt(it.start)
			if it.dur > 0 {
				ev.SetProperty(ics.ComponentProperty(ics.PropertyDuration), formatDuration(it.dur))
			}
		} else {
			ev.SetAllDayStartAt(it.start)
		}
		if it.rule != nil {
			ev.AddRrule(EncodeRule(*it.rule, it.start, it.timed))
			if it.exc.Len() > 0 {
				if it.timed {
					ev.AddExdate(EncodeExceptions(it.exc, it.start, true))
				} else {
					ev.AddExdate(EncodeExceptions(it.exc, it.start, false), ics.WithValue(string(ics.ValueDataTypeDate)))
				}
			}
		}
		ev.SetSummary(it.mesg)
		if it.note != "" {
			text := it.note
			if opts.Notes != nil {
				loaded, err := opts.Notes.Load(it.note)
				if err != nil {
					log.Warn("ical export: note unavailable", "ref", it.note, "err", err)
					loaded = ""
				}
				text = loaded
			}
			parts := splitNote(text)
			if parts.Description != "" {
				ev.SetDescription(parts.Description)
			}
			if parts.Location != "" {
				ev.SetLocation(parts.Location)
			}
			if parts.Comment != "" {
				ev.AddComment(parts.Comment)
			}
		}
		if it.timed && it.state.Has(model.StateNotify) {
			alarm := ev.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dS", int64(opts.AlarmLead/time.Second)))
			alarm.SetProperty(ics.ComponentPropertyDescription, it.mesg)
		}
	}

	if _, err := io.WriteString(w, out.Serialize()); err != nil {
		return fmt.Errorf("ical export: %w", err)
	}
	log.Info("ical export finished", "items", len(items))
	return nil
}

// itemUID derives a UID from the item's content so repeated exports of an
// unchanged calendar agree. Identical items are told apart by position.
func itemUID(it exported, seen map[uuid.UUID]int) uuid.UUID {
	var b strings.Builder
	fmt.Fprintf(&b, "%t|%s|%s|%s", it.timed, it.start.UTC().Format(time.RFC3339), it.dur, it.mesg)
	if it.rule != nil {
		b.WriteString("|" + EncodeRule(*it.rule, it.start, it.timed))
	}
	id := uuid.NewSHA1(uidSpace, []byte(b.String()))
	n := seen[id]
	seen[id] = n + 1
	if n > 0 {
		id = uuid.NewSHA1(id, []byte(fmt.Sprint(n)))
	}
	return id
}

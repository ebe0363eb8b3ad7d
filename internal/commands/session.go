package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/ical"
	"github.com/sandeepkv93/agenda/internal/model"
)

// Session binds the palette to a calendar and to what the user is looking
// at. The caller updates Day and Selected before each command.
type Session struct {
	Cal      *calendar.Calendar
	Notes    ical.NoteStore
	Now      func() time.Time
	Day      time.Time
	Selected day.Entry
	// AlarmLead is passed to Export for flagged appointments.
	AlarmLead time.Duration
	// Skipped receives import problems as they are found.
	Skipped func(*ical.ImportItemSkipped)
}

func (s *Session) Handlers() Handlers {
	return Handlers{
		Goto:   s.gotoDay,
		Add:    s.add,
		Event:  s.event,
		Repeat: s.repeat,
		Skip:   s.skip,
		Unskip: s.unskip,
		Delete: s.delete,
		Flag:   s.flag,
		Note:   s.note,
		Import: s.importFile,
		Export: s.exportFile,
	}
}

// Run parses and executes one palette line.
func (s *Session) Run(line string) (Result, error) {
	cmd, err := Parse(line)
	if err != nil {
		return Result{}, err
	}
	return Execute(cmd, s.Handlers())
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Cal.Location())
	}
	return time.Now().In(s.Cal.Location())
}

func (s *Session) viewed() time.Time {
	if s.Day.IsZero() {
		return date.DayStart(s.now())
	}
	return date.DayStart(s.Day.In(s.Cal.Location()))
}

func (s *Session) selection() (any, error) {
	ref := s.Selected.Ref()
	if ref == nil {
		return nil, &CommandError{Code: ErrCodeNoSelection, Message: "no item selected"}
	}
	return ref, nil
}

func (s *Session) gotoDay(args GotoArgs) (Result, error) {
	d, err := date.ParseDay(args.Day, s.now())
	if err != nil {
		return Result{}, invalid("goto: %v", err)
	}
	s.Day = d
	return Result{Message: d.Format("Monday 2006-01-02"), Day: d}, nil
}

func (s *Session) add(args AddArgs) (Result, error) {
	d := s.viewed()
	start := time.Date(d.Year(), d.Month(), d.Day(),
		int(args.Start/time.Hour), int(args.Start%time.Hour/time.Minute), 0, 0, d.Location())
	apt, err := s.Cal.AddAppointment(model.Appointment{Start: start, Dur: args.Dur, Mesg: args.Mesg})
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("added %s %s", start.Format("15:04"), args.Mesg), Select: apt}, nil
}

func (s *Session) event(args EventArgs) (Result, error) {
	ev, err := s.Cal.AddEvent(model.Event{Day: s.viewed(), Mesg: args.Mesg})
	if err != nil {
		return Result{}, err
	}
	return Result{Message: "added event " + args.Mesg, Select: ev}, nil
}

func (s *Session) repeat(args RepeatArgs) (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	if args.None {
		if !s.Selected.Kind.IsRecurring() {
			return Result{}, invalid("item does not repeat")
		}
		out, err := s.Cal.Unrepeat(ref)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: "repetition removed", Select: out}, nil
	}

	rule := model.Rule{Type: args.Type, Freq: args.Freq}
	if args.Until != "" {
		until, err := date.ParseDay(args.Until, s.now())
		if err != nil {
			return Result{}, invalid("repeat: %v", err)
		}
		rule.Until = until
	}
	if err := rule.Validate(); err != nil {
		return Result{}, invalid("repeat: %v", err)
	}
	if s.Selected.Kind.IsRecurring() {
		if err := s.Cal.SetRule(ref, rule); err != nil {
			return Result{}, err
		}
		return Result{Message: "repeats " + rule.Describe(), Select: ref}, nil
	}
	out, err := s.Cal.Repeat(ref, rule)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: "repeats " + rule.Describe(), Select: out}, nil
}

func (s *Session) skip() (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	if !s.Selected.Kind.IsRecurring() {
		return Result{}, invalid("only repeated items can skip a day")
	}
	if err := s.Cal.DeleteOccurrence(ref, s.Selected.Day); err != nil {
		return Result{}, err
	}
	return Result{Message: "skipped " + s.Selected.Day.Format("2006-01-02")}, nil
}

// unskip restores the occurrence on the viewed day; the skipped occurrence
// is not in the view, so the selection only names the item.
func (s *Session) unskip() (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	d := s.viewed()
	restored, err := s.Cal.RestoreOccurrence(ref, d)
	if err != nil {
		return Result{}, err
	}
	if !restored {
		return Result{Message: "nothing skipped on " + d.Format("2006-01-02")}, nil
	}
	return Result{Message: "restored " + d.Format("2006-01-02"), Select: ref}, nil
}

func (s *Session) delete() (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	if err := s.Cal.Delete(ref); err != nil {
		return Result{}, err
	}
	return Result{Message: "deleted " + s.Selected.Mesg}, nil
}

func (s *Session) flag() (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	if !s.Selected.Kind.IsAppointment() {
		return Result{}, invalid("only appointments can be flagged")
	}
	if err := s.Cal.ToggleNotify(ref); err != nil {
		return Result{}, err
	}
	if s.Selected.State.Has(model.StateNotify) {
		return Result{Message: "alarm off", Select: ref}, nil
	}
	return Result{Message: "alarm on", Select: ref}, nil
}

func (s *Session) note(args NoteArgs) (Result, error) {
	ref, err := s.selection()
	if err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(args.Text)
	if text == "" {
		if err := s.Cal.SetNote(ref, ""); err != nil {
			return Result{}, err
		}
		return Result{Message: "note removed", Select: ref}, nil
	}
	stored := text + "\n"
	if s.Notes != nil {
		if stored, err = s.Notes.Save(stored); err != nil {
			return Result{}, err
		}
	}
	if err := s.Cal.SetNote(ref, stored); err != nil {
		return Result{}, err
	}
	return Result{Message: "note saved", Select: ref}, nil
}

func (s *Session) importFile(args FileArgs) (Result, error) {
	f, err := os.Open(args.Path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	stats, err := ical.Import(f, s.Cal, ical.ImportOptions{Notes: s.Notes, Log: s.Skipped})
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("imported %d events, %d appointments, skipped %d",
		stats.Events, stats.Appointments, stats.Skipped)}, nil
}

func (s *Session) exportFile(args FileArgs) (Result, error) {
	f, err := os.Create(args.Path)
	if err != nil {
		return Result{}, err
	}
	if err := ical.Export(s.Cal, f, ical.ExportOptions{Notes: s.Notes, AlarmLead: s.AlarmLead, Now: s.Now}); err != nil {
		_ = f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("exported %d items to %s", s.Cal.Len(), args.Path)}, nil
}

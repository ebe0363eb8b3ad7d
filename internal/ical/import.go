package ical

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/recur"
)

var ErrImportHeaderInvalid = errors.New("ical: invalid calendar header")

// ImportItemSkipped describes one component that could not be imported.
type ImportItemSkipped struct {
	Line   int
	Kind   string
	Reason string
}

func (e *ImportItemSkipped) Error() string {
	return fmt.Sprintf("%s [%d]: %s", e.Kind, e.Line, e.Reason)
}

// NoteStore persists note text and hands back a reference to it.
type NoteStore interface {
	Save(content string) (string, error)
	Load(ref string) (string, error)
}

type ImportOptions struct {
	// Loc is the zone floating times are read in. Nil means the calendar zone.
	Loc *time.Location
	// Notes stores composed notes. When nil the note text is kept inline.
	Notes NoteStore
	// Log receives every skipped component.
	Log func(*ImportItemSkipped)
}

type Stats struct {
	Version      string
	Lines        int
	Events       int
	Appointments int
	Todos        int
	Skipped      int
}

const malformedEnd = "The ical file seems to be malformed. The end of item was not found."

// Import reads an iCalendar stream into cal. Only a bad header aborts the
// import; components that cannot be converted are reported through
// opts.Log and counted as skipped.
func Import(r io.Reader, cal *calendar.Calendar, opts ImportOptions) (Stats, error) {
	if opts.Loc == nil {
		opts.Loc = cal.Location()
	}
	var stats Stats
	lr := newLineReader(r)

	version, err := readHeader(lr)
	if err != nil {
		return stats, err
	}
	stats.Version = version

	skip := func(line int, kind, reason string) {
		stats.Skipped++
		e := &ImportItemSkipped{Line: line, Kind: kind, Reason: reason}
		log.Warn("ical import skipped item", "kind", kind, "line", line, "reason", reason)
		if opts.Log != nil {
			opts.Log(e)
		}
	}

	for {
		line, lineNo, ok := lr.Next()
		if !ok {
			break
		}
		name, value, _ := strings.Cut(line, ":")
		if !strings.EqualFold(strings.TrimSpace(name), "BEGIN") {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(value)) {
		case "VEVENT":
			ev, complete := collectEvent(lr)
			if !complete {
				skip(lineNo, "VEVENT", malformedEnd)
				stats.Lines = lr.Lines()
				return stats, lr.Err()
			}
			timed, reason := storeEvent(cal, ev, opts)
			switch {
			case reason != "":
				skip(lineNo, "VEVENT", reason)
			case timed:
				stats.Appointments++
			default:
				stats.Events++
			}
		case "VTODO":
			stats.Todos++
			if !skipComponent(lr, "VTODO") {
				skip(lineNo, "VTODO", malformedEnd)
				stats.Lines = lr.Lines()
				return stats, lr.Err()
			}
		}
	}
	stats.Lines = lr.Lines()
	log.Info("ical import finished", "events", stats.Events, "appointments", stats.Appointments, "skipped", stats.Skipped)
	return stats, lr.Err()
}

func readHeader(lr *lineReader) (string, error) {
	line, _, ok := lr.Next()
	if !ok || !strings.EqualFold(strings.TrimSpace(line), "BEGIN:VCALENDAR") {
		return "", fmt.Errorf("%w: missing BEGIN:VCALENDAR", ErrImportHeaderInvalid)
	}
	for {
		line, _, ok := lr.Next()
		if !ok {
			return "", fmt.Errorf("%w: missing VERSION", ErrImportHeaderInvalid)
		}
		name, value, _ := strings.Cut(line, ":")
		if !strings.EqualFold(strings.TrimSpace(name), "VERSION") {
			continue
		}
		major, minor, ok := strings.Cut(strings.TrimSpace(value), ".")
		if !ok {
			return "", fmt.Errorf("%w: malformed VERSION %q", ErrImportHeaderInvalid, value)
		}
		if _, err := strconv.Atoi(major); err != nil {
			return "", fmt.Errorf("%w: malformed VERSION %q", ErrImportHeaderInvalid, value)
		}
		if _, err := strconv.Atoi(minor); err != nil {
			return "", fmt.Errorf("%w: malformed VERSION %q", ErrImportHeaderInvalid, value)
		}
		return major + "." + minor, nil
	}
}

// skipComponent consumes lines up to the END matching kind.
func skipComponent(lr *lineReader, kind string) bool {
	for {
		line, _, ok := lr.Next()
		if !ok {
			return false
		}
		name, value, _ := strings.Cut(line, ":")
		if strings.EqualFold(strings.TrimSpace(name), "END") && strings.EqualFold(strings.TrimSpace(value), kind) {
			return true
		}
	}
}

// vevent holds the raw properties of one VEVENT.
type vevent struct {
	start    *property
	end      *property
	duration *property
	rrule    *property
	exdates  []property
	summary  string
	parts    noteParts
	hasAlarm bool
	problem  string
}

func collectEvent(lr *lineReader) (vevent, bool) {
	var ev vevent
	for {
		line, lineNo, ok := lr.Next()
		if !ok {
			return ev, false
		}
		p, err := parseProperty(line, lineNo)
		if err != nil {
			continue
		}
		switch p.Name {
		case "END":
			if strings.EqualFold(strings.TrimSpace(p.Value), "VEVENT") {
				return ev, true
			}
		case "BEGIN":
			kind := strings.ToUpper(strings.TrimSpace(p.Value))
			if kind == "VALARM" {
				ev.hasAlarm = true
			}
			if !skipComponent(lr, kind) {
				return ev, false
			}
		case "DTSTART":
			ev.start = &p
		case "DTEND":
			ev.end = &p
		case "DURATION":
			ev.duration = &p
		case "RRULE":
			ev.rrule = &p
		case "EXDATE":
			ev.exdates = append(ev.exdates, p)
		case "SUMMARY":
			ev.summary = strings.ReplaceAll(unescapeText(p.Value), "\n", " ")
		case "DESCRIPTION":
			if ev.parts.Description != "" {
				ev.problem = firstNonEmpty(ev.problem, "only one description allowed.")
				continue
			}
			ev.parts.Description = unescapeText(p.Value)
		case "LOCATION":
			if ev.parts.Location != "" {
				ev.problem = firstNonEmpty(ev.problem, "only one location allowed.")
				continue
			}
			ev.parts.Location = unescapeText(p.Value)
		case "COMMENT":
			c := unescapeText(p.Value)
			if ev.parts.Comment != "" {
				c = ev.parts.Comment + "\n" + c
			}
			ev.parts.Comment = c
		}
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// storeEvent converts ev and adds it to cal. A non-empty reason means the
// component was rejected.
func storeEvent(cal *calendar.Calendar, ev vevent, opts ImportOptions) (bool, string) {
	loc := opts.Loc
	if ev.problem != "" {
		return false, ev.problem
	}
	if ev.start == nil {
		return false, "item start date not defined."
	}
	timed := !ev.start.IsDate()

	tzid := ev.start.Param("TZID")
	if timed && tzid != "" {
		if _, err := time.LoadLocation(tzid); err != nil {
			addImportNote(&ev.parts, "TZID="+tzid)
		}
	}
	start, err := parseStamp(ev.start.Value, !timed, tzid, loc)
	if err != nil {
		return timed, "invalid or malformed event start time."
	}

	var dur time.Duration
	if ev.end != nil {
		if ev.end.IsDate() == timed {
			return timed, "invalid end time value type."
		}
		end, err := parseStamp(ev.end.Value, !timed, ev.end.Param("TZID"), loc)
		if err != nil {
			return timed, "malformed event end time."
		}
		if !end.After(start) {
			return timed, "end must be later than start."
		}
		dur = end.Sub(start)
	}
	if ev.duration != nil {
		if ev.end != nil {
			return timed, "either end or duration."
		}
		d, err := parseDuration(ev.duration.Value, timed)
		if err != nil {
			return timed, "invalid duration."
		}
		dur = d
	}

	var (
		rule  model.Rule
		count int
	)
	if ev.rrule != nil {
		rule, count, err = DecodeRule(ev.rrule.Value, timed, loc)
		if err != nil {
			var re *RuleError
			if errors.As(err, &re) {
				return timed, re.Reason
			}
			return timed, err.Error()
		}
	}

	var exc model.Exceptions
	if len(ev.exdates) > 0 {
		if ev.rrule == nil {
			return timed, "exception date, but no recurrence rule."
		}
		for _, p := range ev.exdates {
			for _, v := range strings.Split(p.Value, ",") {
				if stampIsDate(p, v) == timed {
					return timed, "invalid exception date value type."
				}
				t, err := parseStamp(v, !timed, p.Param("TZID"), loc)
				if err != nil {
					return timed, "invalid exception."
				}
				exc.Add(date.DayStart(t))
			}
		}
	}

	// An untimed item lasts whole days; the last one is inclusive.
	days := 1
	if !timed && dur > 0 {
		days = int((dur + 12*time.Hour) / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
		if ev.rrule != nil && days > 1 {
			addImportNote(&ev.parts, "multi-day event changed to one-day event")
		}
	}

	if ev.rrule != nil {
		if rule.Bounded() {
			rule = UntilDay(rule, start, timed)
		}
		if err := recur.CheckStartDay(rule, start); err != nil {
			return timed, fmt.Sprintf("rrule does not match start day (%s).", start.Format("2006-01-02"))
		}
		if count > 0 {
			nth, err := recur.NthOccurrence(rule, start, exc, count)
			if err != nil {
				return timed, "rrule count cannot be reached."
			}
			rule.Until = date.DayStart(nth)
		}
	}

	mesg := strings.TrimSpace(ev.summary)
	if mesg == "" {
		mesg = "(empty)"
	}
	note, err := saveNote(ev.parts, opts.Notes)
	if err != nil {
		return timed, "could not save note."
	}

	switch {
	case timed && ev.rrule != nil:
		ap := model.Appointment{Start: start, Dur: dur, Mesg: mesg, Note: note}
		if ev.hasAlarm {
			ap.State = model.StateNotify
		}
		_, err = cal.AddRecurApt(model.RecurApt{Appointment: ap, Rule: rule, Exc: exc})
	case timed:
		ap := model.Appointment{Start: start, Dur: dur, Mesg: mesg, Note: note}
		if ev.hasAlarm {
			ap.State = model.StateNotify
		}
		_, err = cal.AddAppointment(ap)
	case ev.rrule != nil:
		_, err = cal.AddRecurEvent(model.RecurEvent{
			Event: model.Event{Day: start, Mesg: mesg, Note: note},
			Rule:  rule,
			Exc:   exc,
		})
	case days > 1:
		_, err = cal.AddRecurEvent(model.RecurEvent{
			Event: model.Event{Day: start, Mesg: mesg, Note: note},
			Rule:  model.Rule{Type: model.RecurDaily, Freq: 1, Until: date.AddDays(start, days-1)},
		})
	default:
		_, err = cal.AddEvent(model.Event{Day: start, Mesg: mesg, Note: note})
	}
	if err != nil {
		return timed, fmt.Sprintf("item rejected (%v).", err)
	}
	return timed, ""
}

// stampIsDate decides the value type of one entry of a possibly
// comma-joined property value.
func stampIsDate(p property, v string) bool {
	if t := p.Param("VALUE"); t != "" {
		return strings.EqualFold(t, "DATE")
	}
	return len(strings.TrimSpace(v)) == len(dateLayout)
}

func addImportNote(p *noteParts, s string) {
	if p.Import == "" {
		p.Import = s
		return
	}
	p.Import += ", " + s
}

func saveNote(parts noteParts, store NoteStore) (string, error) {
	if parts.empty() {
		return "", nil
	}
	text := parts.compose()
	if store == nil {
		return text, nil
	}
	return store.Save(text)
}

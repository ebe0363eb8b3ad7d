package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/views"
)

// rebuild recomputes the view of the current day and puts the cursor back
// on the remembered selection.
func (m *Model) rebuild() {
	m.Entries, m.Count = day.Build(m.cal, m.Day, 1, day.Options{Captions: true, BlankLine: m.cfg.BlankLine})
	m.Cursor = m.nearestSelectable(day.Locate(m.Entries, m.sel), 1)
	if e, ok := m.Selected(); ok {
		m.sel = day.SelectionOf(e)
	}
	m.Busy = day.BusySlices(m.cal, m.Day, m.cfg.BusySlices)
	m.refreshNext()
	m.refreshNote()
}

func (m *Model) refreshNext() {
	if m.notifier != nil {
		m.Next = m.notifier.Next()
		return
	}
	m.Next = day.NextUpcomingMatching(m.cal, m.now(), m.keep)
}

// nearestSelectable walks from i in direction dir and returns the first
// selectable index, trying the other direction when none is found.
func (m Model) nearestSelectable(i, dir int) int {
	for _, d := range []int{dir, -dir} {
		for j := i; j >= 0 && j < len(m.Entries); j += d {
			if m.Entries[j].Selectable() {
				return j
			}
		}
	}
	return 0
}

func (m *Model) moveCursor(dir int) {
	for j := m.Cursor + dir; j >= 0 && j < len(m.Entries); j += dir {
		if m.Entries[j].Selectable() {
			m.Cursor = j
			m.sel = day.SelectionOf(m.Entries[j])
			m.refreshNote()
			return
		}
	}
}

func (m *Model) moveDay(n int) {
	m.gotoDay(date.AddDays(m.Day, n))
}

func (m *Model) gotoDay(d time.Time) {
	m.Day = date.DayStart(d.In(m.cal.Location()))
	m.sel = day.Selection{Order: m.Day}
	m.rebuild()
}

func (m *Model) refreshNote() {
	e, ok := m.Selected()
	if !ok || !e.Kind.IsItem() || e.Note == "" {
		m.noteViewport.SetContent("")
		return
	}
	text := e.Note
	if m.notes != nil {
		loaded, err := m.notes.Load(e.Note)
		if err != nil {
			log.Warn("note unavailable", "ref", e.Note, "err", err)
			m.noteViewport.SetContent("")
			return
		}
		text = loaded
	}
	m.noteViewport.SetContent(views.RenderMarkdown(text))
	m.noteViewport.GotoTop()
}

func (m Model) renderDayPanel() string {
	data := views.DayPanelData{Title: m.Day.Format("Monday, January 2 2006")}
	for i, e := range m.Entries {
		data.Entries = append(data.Entries, entryData(e, i == m.Cursor))
	}
	return views.RenderDayPanel(data) + "\n\n" + views.RenderBusyBar(m.Busy)
}

func entryData(e day.Entry, selected bool) views.EntryData {
	out := views.EntryData{
		Mesg:      e.Mesg,
		Flagged:   e.State.Has(model.StateNotify),
		Recurring: e.Kind.IsRecurring(),
		HasNote:   e.Note != "",
		Selected:  selected,
	}
	switch {
	case e.Kind.IsAppointment():
		out.Kind = views.EntryAppointment
		out.Time = spanText(e)
	case e.Kind.IsEvent():
		out.Kind = views.EntryEvent
	case e.Kind == day.KindHeading:
		out.Kind = views.EntryHeading
		out.Mesg = e.Day.Format("Mon 2006-01-02")
	case e.Kind == day.KindSeparator:
		out.Kind = views.EntrySeparator
	case e.Kind == day.KindEmptyDay:
		out.Kind = views.EntryEmpty
	case e.Kind == day.KindBlank:
		out.Kind = views.EntryBlank
	default:
		out.Kind = views.EntryEnd
	}
	return out
}

// spanText renders the part of an occurrence inside its day. Ends outside
// the day are shown as "..:..".
func spanText(e day.Entry) string {
	from, to := "..:..", "..:.."
	if !e.Spanning() {
		from = e.Start.Format("15:04")
	}
	if end := e.End(); end.Before(date.NextDay(e.Day)) {
		to = end.Format("15:04")
	}
	if e.Dur == 0 && !e.Spanning() {
		return from
	}
	return from + " -> " + to
}

func (m Model) renderNotePanel() string {
	e, ok := m.Selected()
	if !ok || !e.Kind.IsItem() {
		return views.RenderNotePanel(views.NotePanelData{})
	}
	data := views.NotePanelData{Mesg: e.Mesg, Rule: e.Rule, NoteView: m.noteViewport.View()}
	if e.Kind.IsAppointment() {
		data.When = fmt.Sprintf("%s, %s", e.Start.Format("Mon Jan 2 15:04"), e.Dur)
	}
	return views.RenderNotePanel(data)
}

func (m Model) renderNotifyBar() string {
	if !m.cfg.NotifyBar {
		return ""
	}
	now := m.now().In(m.cal.Location())
	data := views.NotifyBarData{Date: now.Format("Mon 2006-01-02"), Clock: now.Format("15:04:05")}
	if u, ok := m.Next.Get(); ok && !u.Start.Before(now) {
		left := u.Start.Sub(now)
		data.Next = strings.TrimSpace(u.Start.Format("15:04") + " " + u.Mesg)
		data.Countdown = fmt.Sprintf("in %02d:%02d", int(left.Hours()), int(left.Minutes())%60)
		data.Warn = left <= m.cfg.NotifyWarning()
	}
	return views.RenderNotifyBar(data)
}

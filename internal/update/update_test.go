package update

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/config"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/scheduler"
)

var today = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	cal   *calendar.Calendar
	now   time.Time
	saves int
}

func newFixture(t *testing.T) (*fixture, Model) {
	t.Helper()
	f := &fixture{cal: calendar.New(time.UTC), now: today.Add(8 * time.Hour)}
	if _, err := f.cal.AddEvent(model.Event{Day: today, Mesg: "Birthday"}); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if _, err := f.cal.AddAppointment(model.Appointment{
		Start: today.Add(9*time.Hour + 30*time.Minute),
		Dur:   30 * time.Minute,
		State: model.StateNotify,
		Mesg:  "standup",
	}); err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	m := NewModel(Options{
		Cal:    f.cal,
		Config: *config.DefaultConfig(),
		Now:    func() time.Time { return f.now },
		Save: func() error {
			f.saves++
			return nil
		},
	})
	return f, m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func selectedMesg(t *testing.T, m Model) string {
	t.Helper()
	e, ok := m.Selected()
	if !ok {
		t.Fatalf("no selection, cursor %d of %d", m.Cursor, len(m.Entries))
	}
	return e.Mesg
}

func TestNewModelShowsToday(t *testing.T) {
	_, m := newFixture(t)
	if !m.Day.Equal(today) {
		t.Fatalf("expected day %s, got %s", today, m.Day)
	}
	if m.Count != 2 {
		t.Fatalf("expected 2 items, got %d", m.Count)
	}
	if got := selectedMesg(t, m); got != "Birthday" {
		t.Fatalf("expected cursor on the event, got %q", got)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if len(m.Busy) != 24 || !m.Busy[9] || m.Busy[10] {
		t.Fatalf("unexpected busy slices: %v", m.Busy)
	}
}

func TestNavigationKeys(t *testing.T) {
	_, m := newFixture(t)

	m = press(t, m, "j")
	if got := selectedMesg(t, m); got != "standup" {
		t.Fatalf("expected cursor to skip the separator onto standup, got %q", got)
	}
	m = press(t, m, "j")
	if got := selectedMesg(t, m); got != "standup" {
		t.Fatalf("cursor should stay on the last item, got %q", got)
	}

	m = press(t, m, "l")
	if !m.Day.Equal(today.AddDate(0, 0, 1)) {
		t.Fatalf("expected next day, got %s", m.Day)
	}
	e, _ := m.Selected()
	if e.Kind != day.KindEmptyDay {
		t.Fatalf("expected empty day marker, got %s", e.Kind)
	}

	m = press(t, m, "h", "h")
	if !m.Day.Equal(today.AddDate(0, 0, -1)) {
		t.Fatalf("expected previous day, got %s", m.Day)
	}
	m = press(t, m, "t")
	if !m.Day.Equal(today) {
		t.Fatalf("expected today, got %s", m.Day)
	}
}

func TestPaletteAddSelectsNewItem(t *testing.T) {
	_, m := newFixture(t)
	m = press(t, m, "/")
	if !m.Palette.Active {
		t.Fatalf("expected palette to open")
	}
	m = press(t, m, "add 11:00+1h lunch", "enter")
	if m.Palette.Active {
		t.Fatalf("expected palette to close")
	}
	if m.Status.IsError || m.Status.Text != "added 11:00 lunch" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if got := selectedMesg(t, m); got != "lunch" {
		t.Fatalf("expected new item selected, got %q", got)
	}
	if m.Count != 3 {
		t.Fatalf("expected 3 items, got %d", m.Count)
	}
}

func TestPaletteErrorsAndEscape(t *testing.T) {
	_, m := newFixture(t)
	m = press(t, m, "/", "bogus", "enter")
	if !m.Status.IsError || m.LastError == nil {
		t.Fatalf("expected error status, got %+v", m.Status)
	}

	m = press(t, m, "/", "event x", "esc")
	if m.Palette.Active || m.Count != 2 {
		t.Fatalf("escape should discard the command, count %d", m.Count)
	}
}

func TestGotoKeyPrefillsPalette(t *testing.T) {
	_, m := newFixture(t)
	m = press(t, m, "g")
	if m.Palette.Input != "goto " {
		t.Fatalf("expected goto prefill, got %q", m.Palette.Input)
	}
	m = press(t, m, "2026-12-25", "enter")
	want := time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC)
	if !m.Day.Equal(want) {
		t.Fatalf("expected %s, got %s", want, m.Day)
	}
}

func TestSelectionSurvivesExternalChange(t *testing.T) {
	f, m := newFixture(t)
	m = press(t, m, "j")
	if _, err := f.cal.AddAppointment(model.Appointment{Start: today.Add(7 * time.Hour), Mesg: "gym"}); err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	updated, _ := m.Update(CalendarChangedMsg{})
	m = updated.(Model)
	if got := selectedMesg(t, m); got != "standup" {
		t.Fatalf("expected selection to stay on standup, got %q", got)
	}
	if m.Count != 3 {
		t.Fatalf("expected 3 items after rebuild, got %d", m.Count)
	}
}

func TestFlagDeleteAndSaveKeys(t *testing.T) {
	f, m := newFixture(t)
	m = press(t, m, "j", "f")
	if m.Status.Text != "alarm off" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	e, _ := m.Selected()
	if e.State.Has(model.StateNotify) {
		t.Fatalf("expected flag cleared")
	}

	m = press(t, m, "d")
	if m.Count != 1 || f.cal.Apts.Len() != 0 {
		t.Fatalf("expected appointment deleted, count %d", m.Count)
	}
	if got := selectedMesg(t, m); got != "Birthday" {
		t.Fatalf("expected cursor to fall back on the day, got %q", got)
	}

	m = press(t, m, "s")
	if f.saves != 1 || m.Status.Text != "saved 1 items" {
		t.Fatalf("unexpected save: saves=%d status=%+v", f.saves, m.Status)
	}
}

func TestDayChangedFollowsToday(t *testing.T) {
	f, m := newFixture(t)
	f.now = f.now.Add(24 * time.Hour)
	updated, _ := m.Update(DayChangedMsg{})
	m = updated.(Model)
	if !m.Day.Equal(today.AddDate(0, 0, 1)) {
		t.Fatalf("expected view to follow the day change, got %s", m.Day)
	}

	m = press(t, m, "l", "l")
	f.now = f.now.Add(24 * time.Hour)
	updated, _ = m.Update(DayChangedMsg{})
	m = updated.(Model)
	if !m.Day.Equal(today.AddDate(0, 0, 3)) {
		t.Fatalf("a browsed day should not move, got %s", m.Day)
	}
}

func TestAlarmAndStatusMessages(t *testing.T) {
	_, m := newFixture(t)
	updated, _ := m.Update(AlarmMsg{Alarm: scheduler.Alarm{Start: today.Add(9*time.Hour + 30*time.Minute), Mesg: "standup"}})
	m = updated.(Model)
	if len(m.Alarms) != 1 || m.Status.Text != "alarm: 09:30 standup" {
		t.Fatalf("unexpected alarm state: %+v %+v", m.Alarms, m.Status)
	}

	updated, _ = m.Update(AppErrorMsg{Err: errors.New("boom")})
	m = updated.(Model)
	if !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}
	updated, _ = m.Update(ClearStatusMsg{})
	m = updated.(Model)
	if m.Status.Text != "" {
		t.Fatalf("expected cleared status, got %+v", m.Status)
	}
}

func TestViewShowsDayAndNotifyBar(t *testing.T) {
	_, m := newFixture(t)
	out := m.View()
	for _, want := range []string{"Birthday", "09:30 -> 10:00 standup", "09:30 standup", "in 01:30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}

	m = press(t, m, "?")
	if !strings.Contains(m.View(), "open command palette") {
		t.Fatalf("expected help panel")
	}
	m = press(t, m, "q")
	if !m.Quitting || m.View() != "" {
		t.Fatalf("expected quitting model")
	}
}

func TestPaletteForwardsEditingKeys(t *testing.T) {
	_, m := newFixture(t)
	m = press(t, m, "/", "evenx")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = updated.(Model)
	if m.Palette.Input != "even" {
		t.Fatalf("expected backspace to edit the palette, got %q", m.Palette.Input)
	}

	m = press(t, m, "t Fair", "enter")
	if m.Count != 3 || selectedMesg(t, m) != "Fair" {
		t.Fatalf("expected new event selected, count %d", m.Count)
	}
}

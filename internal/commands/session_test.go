package commands

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/model"
)

var viewDay = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func newSession() *Session {
	return &Session{
		Cal: calendar.New(time.UTC),
		Now: func() time.Time { return viewDay.Add(8 * time.Hour) },
		Day: viewDay,
	}
}

// selectRef points the session at ref as it appears on d.
func selectRef(t *testing.T, s *Session, d time.Time, ref any) {
	t.Helper()
	entries, _ := day.Build(s.Cal, d, 1, day.Options{})
	for _, e := range entries {
		if e.Ref() == ref {
			s.Selected = e
			return
		}
	}
	t.Fatalf("item %v not on %s", ref, d.Format("2006-01-02"))
}

func codeOf(err error) ErrorCode {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func TestSessionAppointmentLifecycle(t *testing.T) {
	s := newSession()

	res, err := s.Run("add 09:30-10:15 standup")
	require.NoError(t, err)
	apt, ok := res.Select.(*model.Appointment)
	require.True(t, ok)
	assert.Equal(t, viewDay.Add(9*time.Hour+30*time.Minute), apt.Start)
	assert.Equal(t, 45*time.Minute, apt.Dur)

	selectRef(t, s, viewDay, apt)
	res, err = s.Run("flag")
	require.NoError(t, err)
	assert.Equal(t, "alarm on", res.Message)
	assert.True(t, apt.State.Has(model.StateNotify))

	res, err = s.Run("repeat weekly every 2 until 2026-04-30")
	require.NoError(t, err)
	rapt, ok := res.Select.(*model.RecurApt)
	require.True(t, ok)
	assert.Equal(t, 0, s.Cal.Apts.Len())
	assert.Equal(t, 2, rapt.Rule.Freq)
	assert.Equal(t, "repeats every 2 weeks until 2026-04-30", res.Message)

	skipDay := viewDay.AddDate(0, 0, 14)
	selectRef(t, s, skipDay, rapt)
	_, err = s.Run("skip")
	require.NoError(t, err)
	entries, count := day.Build(s.Cal, skipDay, 1, day.Options{})
	assert.Zero(t, count, "%+v", entries)

	s.Day = skipDay
	selectRef(t, s, viewDay, rapt)
	res, err = s.Run("unskip")
	require.NoError(t, err)
	assert.Equal(t, "restored 2026-03-24", res.Message)
	_, count = day.Build(s.Cal, skipDay, 1, day.Options{})
	assert.Equal(t, 1, count)

	res, err = s.Run("note call Bob first")
	require.NoError(t, err)
	assert.Equal(t, "call Bob first\n", rapt.Note)

	selectRef(t, s, viewDay, rapt)
	res, err = s.Run("repeat none")
	require.NoError(t, err)
	back, ok := res.Select.(*model.Appointment)
	require.True(t, ok)
	assert.Equal(t, "call Bob first\n", back.Note)

	selectRef(t, s, viewDay, back)
	_, err = s.Run("delete")
	require.NoError(t, err)
	assert.Zero(t, s.Cal.Len())
}

func TestSessionRejectsMisdirectedCommands(t *testing.T) {
	s := newSession()

	_, err := s.Run("flag")
	assert.Equal(t, ErrCodeNoSelection, codeOf(err))

	res, err := s.Run("event Holiday")
	require.NoError(t, err)
	selectRef(t, s, viewDay, res.Select)

	_, err = s.Run("flag")
	assert.Equal(t, ErrCodeInvalidArgument, codeOf(err))
	_, err = s.Run("skip")
	assert.Equal(t, ErrCodeInvalidArgument, codeOf(err))
	_, err = s.Run("repeat none")
	assert.Equal(t, ErrCodeInvalidArgument, codeOf(err))
}

func TestSessionRepeatMustMatchStartDay(t *testing.T) {
	s := newSession()
	res, err := s.Run("event Review")
	require.NoError(t, err)
	ev := res.Select.(*model.Event)
	selectRef(t, s, viewDay, ev)

	_, err = s.Run("repeat weekly until 2026-03-01")
	require.Error(t, err)
	assert.Equal(t, 1, s.Cal.Events.Len())
	assert.Zero(t, s.Cal.RecurEvents.Len())
}

func TestSessionGoto(t *testing.T) {
	s := newSession()
	res, err := s.Run("goto +3")
	require.NoError(t, err)
	assert.Equal(t, viewDay.AddDate(0, 0, 3), res.Day)
	assert.Equal(t, res.Day, s.Day)
	assert.Equal(t, "Friday 2026-03-13", res.Message)
}

func TestSessionExportThenImport(t *testing.T) {
	s := newSession()
	_, err := s.Run("event Holiday")
	require.NoError(t, err)
	_, err = s.Run("add 12:00+1h lunch")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.ics")
	res, err := s.Run("export " + path)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "exported 2 items")

	other := newSession()
	res, err = other.Run("import " + path)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 events, 1 appointments, skipped 0", res.Message)

	entries, count := day.Build(other.Cal, viewDay, 1, day.Options{})
	require.Equal(t, 2, count)
	assert.Equal(t, "Holiday", entries[0].Mesg)
	assert.Equal(t, "lunch", entries[1].Mesg)
	assert.Equal(t, time.Hour, entries[1].Dur)
}

func TestSessionImportMissingFile(t *testing.T) {
	s := newSession()
	_, err := s.Run("import " + filepath.Join(t.TempDir(), "absent.ics"))
	require.Error(t, err)
}

package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/agenda/internal/scheduler"
)

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// CalendarChangedMsg asks for a rebuild after a mutation made outside the
// model, e.g. by the notifier.
type CalendarChangedMsg struct{}

// DayChangedMsg is sent when the civil day rolls over.
type DayChangedMsg struct{}

type AlarmMsg struct {
	Alarm scheduler.Alarm
}

type clockTickMsg time.Time

func waitForAlarmCmd(ch <-chan scheduler.Alarm) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return AlarmMsg{Alarm: a}
	}
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{clockTickCmd()}
	if m.notifier != nil {
		cmds = append(cmds, waitForAlarmCmd(m.notifier.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case clockTickMsg:
		m.refreshNext()
		return m, clockTickCmd()
	case CalendarChangedMsg:
		m.rebuild()
		return m, nil
	case DayChangedMsg:
		today := date.DayStart(m.now().In(m.cal.Location()))
		if date.SameDay(date.AddDays(today, -1), m.Day) {
			m.gotoDay(today)
		} else {
			m.rebuild()
		}
		return m, nil
	case AlarmMsg:
		m.Alarms = append(m.Alarms, typed.Alarm)
		if len(m.Alarms) > maxAlarms {
			m.Alarms = m.Alarms[len(m.Alarms)-maxAlarms:]
		}
		m.Status = StatusBar{Text: fmt.Sprintf("alarm: %s %s", typed.Alarm.Start.Format("15:04"), typed.Alarm.Mesg)}
		m.rebuild()
		if m.notifier != nil {
			return m, waitForAlarmCmd(m.notifier.C())
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Palette:
		return m.openPalette(""), nil
	case m.Keys.Goto:
		return m.openPalette("goto "), nil
	case m.Keys.Prev, "left":
		m.moveDay(-1)
	case m.Keys.Next, "right":
		m.moveDay(1)
	case m.Keys.Up, "up":
		m.moveCursor(-1)
	case m.Keys.Down, "down":
		m.moveCursor(1)
	case m.Keys.Today:
		m.gotoDay(m.now())
	case m.Keys.Flag:
		return m.runCommand("flag"), nil
	case m.Keys.Delete:
		return m.runCommand("delete"), nil
	case m.Keys.Save:
		return m.saveNow(), nil
	case "pgdown":
		m.noteViewport.HalfViewDown()
	case "pgup":
		m.noteViewport.HalfViewUp()
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// runCommand executes one palette line against the current view and applies
// its result.
func (m Model) runCommand(line string) Model {
	m.session.Day = m.Day
	if e, ok := m.Selected(); ok {
		m.session.Selected = e
	} else {
		m.session.Selected = day.Entry{}
	}
	res, err := m.session.Run(line)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.LastError = err
		return m
	}
	m.Status = StatusBar{Text: res.Message}
	switch {
	case !res.Day.IsZero():
		m.gotoDay(res.Day)
	default:
		if res.Select != nil {
			m.sel.Ref = res.Select
		}
		m.rebuild()
	}
	return m
}

func (m Model) saveNow() Model {
	if m.save == nil {
		m.Status = StatusBar{Text: "saving is not configured", IsError: true}
		return m
	}
	if err := m.save(); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.LastError = err
		return m
	}
	m.Status = StatusBar{Text: fmt.Sprintf("saved %d items", m.cal.Len())}
	return m
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	status := m.Status.Text
	if m.Palette.Active {
		status = views.RenderCommandPalette(true, m.commandInput.View())
	}
	right := m.renderNotePanel()
	if m.HelpVisible {
		right = m.renderHelpView()
	}
	header := fmt.Sprintf("agenda | %s | %d items", m.Day.Format("2006-01-02"), m.Count)
	if n := len(m.Alarms); n > 0 {
		last := m.Alarms[n-1]
		header += fmt.Sprintf(" | last alarm: %s %s", last.Start.Format("15:04"), last.Mesg)
	}
	return views.RenderApp(views.AppData{
		Header:     header,
		NotifyBar:  m.renderNotifyBar(),
		LeftPane:   m.renderDayPanel(),
		RightPane:  right,
		StatusLine: status,
		IsError:    m.Status.IsError && !m.Palette.Active,
		Footer: strings.Join([]string{
			m.Keys.Prev + "/" + m.Keys.Next + " day",
			m.Keys.Up + "/" + m.Keys.Down + " move",
			m.Keys.Today + " today",
			m.Keys.Goto + " goto",
			m.Keys.Palette + " cmd",
			m.Keys.Help + " help",
			m.Keys.Quit + " quit",
		}, " | "),
	})
}

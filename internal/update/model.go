package update

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/samber/mo"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/commands"
	"github.com/sandeepkv93/agenda/internal/config"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/ical"
	"github.com/sandeepkv93/agenda/internal/scheduler"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Prev    string
	Next    string
	Up      string
	Down    string
	Today   string
	Goto    string
	Flag    string
	Delete  string
	Save    string
	Palette string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// Options wires the model to the running session.
type Options struct {
	Cal      *calendar.Calendar
	Notes    ical.NoteStore
	Notifier *scheduler.Notifier
	Config   config.Config
	// Save persists the calendar. Nil disables the save key.
	Save func() error
	Now  func() time.Time
}

type Model struct {
	Day      time.Time
	Entries  []day.Entry
	Count    int
	Cursor   int
	Busy     []bool
	Next     mo.Option[day.Upcoming]
	Alarms   []scheduler.Alarm
	Palette  CommandPaletteState
	Status   StatusBar
	Keys     GlobalKeyMap
	Quitting bool

	HelpVisible bool
	LastError   error

	cal      *calendar.Calendar
	notes    ical.NoteStore
	notifier *scheduler.Notifier
	cfg      config.Config
	save     func() error
	now      func() time.Time
	session  *commands.Session
	keep     func(day.Upcoming) bool
	sel      day.Selection

	commandInput textinput.Model
	helpModel    help.Model
	noteViewport viewport.Model
}

const maxAlarms = 5

func NewModel(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cal == nil {
		loc, err := opts.Config.Location()
		if err != nil {
			loc = time.Local
		}
		opts.Cal = calendar.New(loc)
	}
	keep, err := scheduler.FilterFor(opts.Config.NotifyFilter)
	if err != nil {
		keep, _ = scheduler.FilterFor("all")
	}
	today := date.DayStart(opts.Now().In(opts.Cal.Location()))
	m := Model{
		Day:      today,
		cal:      opts.Cal,
		notes:    opts.Notes,
		notifier: opts.Notifier,
		cfg:      opts.Config,
		save:     opts.Save,
		now:      opts.Now,
		keep:     keep,
		sel:      day.Selection{Order: today},
		session: &commands.Session{
			Cal:       opts.Cal,
			Notes:     opts.Notes,
			Now:       opts.Now,
			AlarmLead: opts.Config.NotifyWarning(),
		},
		Keys: GlobalKeyMap{
			Prev:    "h",
			Next:    "l",
			Up:      "k",
			Down:    "j",
			Today:   "t",
			Goto:    "g",
			Flag:    "f",
			Delete:  "d",
			Save:    "s",
			Palette: "/",
			Help:    "?",
			Quit:    "q",
		},
	}
	m.initBubbleComponents()
	m.rebuild()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
	m.noteViewport = viewport.New(50, 14)
}

// Selected returns the entry under the cursor, if any.
func (m Model) Selected() (day.Entry, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Entries) {
		return day.Entry{}, false
	}
	return m.Entries[m.Cursor], true
}

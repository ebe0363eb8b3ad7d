package views

import (
	"fmt"
	"strings"
)

type EntryKind string

const (
	EntryEvent       EntryKind = "event"
	EntryAppointment EntryKind = "appointment"
	EntryHeading     EntryKind = "heading"
	EntrySeparator   EntryKind = "separator"
	EntryEmpty       EntryKind = "empty"
	EntryBlank       EntryKind = "blank"
	EntryEnd         EntryKind = "end"
)

// EntryData is one pre-formatted line of the day panel.
type EntryData struct {
	Kind      EntryKind
	Time      string
	Mesg      string
	Flagged   bool
	Recurring bool
	HasNote   bool
	Selected  bool
}

type DayPanelData struct {
	Title   string
	Entries []EntryData
}

type NotifyBarData struct {
	Date      string
	Clock     string
	Next      string
	Countdown string
	Warn      bool
}

type NotePanelData struct {
	Mesg     string
	When     string
	Rule     string
	NoteView string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderDayPanel(data DayPanelData) string {
	var b strings.Builder
	b.WriteString(data.Title + "\n")
	for _, e := range data.Entries {
		b.WriteString(renderEntry(e))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderEntry(e EntryData) string {
	var line string
	switch e.Kind {
	case EntryHeading:
		return markerStyle.Render(e.Mesg)
	case EntrySeparator:
		return markerStyle.Render(strings.Repeat("-", 24))
	case EntryBlank, EntryEnd:
		return ""
	case EntryEmpty:
		line = "  (no items)"
	case EntryAppointment:
		line = fmt.Sprintf("%s%s %s", badge(e), e.Time, e.Mesg)
	default:
		line = fmt.Sprintf("%s%s", badge(e), e.Mesg)
	}
	if e.Selected {
		return selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
	}
	return line
}

// badge is the two-column prefix: '!' flagged, '*' repeated, '>' note.
func badge(e EntryData) string {
	mark := ' '
	switch {
	case e.Flagged:
		mark = '!'
	case e.Recurring:
		mark = '*'
	}
	note := ' '
	if e.HasNote {
		note = '>'
	}
	return fmt.Sprintf("%c%c", mark, note)
}

// RenderBusyBar draws one cell per slice of the day.
func RenderBusyBar(slices []bool) string {
	if len(slices) == 0 {
		return ""
	}
	var b strings.Builder
	for _, busy := range slices {
		if busy {
			b.WriteString("█")
		} else {
			b.WriteString("·")
		}
	}
	return "busy " + busyStyle.Render(b.String())
}

func RenderNotifyBar(data NotifyBarData) string {
	left := fmt.Sprintf(" %s  %s ", data.Date, data.Clock)
	if data.Next == "" {
		return notifyStyle.Render(left + "| no upcoming appointment ")
	}
	text := fmt.Sprintf("%s| > %s < (%s) ", left, data.Next, data.Countdown)
	if data.Warn {
		return warnStyle.Render(text)
	}
	return notifyStyle.Render(text)
}

func RenderNotePanel(data NotePanelData) string {
	if data.Mesg == "" {
		return "note:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString(data.Mesg + "\n")
	if data.When != "" {
		b.WriteString(data.When + "\n")
	}
	if data.Rule != "" {
		b.WriteString("repeats " + data.Rule + "\n")
	}
	b.WriteString("\n")
	if strings.TrimSpace(data.NoteView) == "" {
		b.WriteString("(no note)")
	} else {
		b.WriteString(data.NoteView)
	}
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return input
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}

package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/agenda/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.bindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	plain = append(plain, "", "commands:")
	for _, c := range paletteCommands {
		plain = append(plain, "  "+c)
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

var paletteCommands = []string{
	"goto DAY",
	"add HH:MM[-HH:MM|+DUR] MESSAGE",
	"event MESSAGE",
	"repeat daily|weekly|monthly|yearly [every N] [until DAY]",
	"repeat none",
	"skip, unskip",
	"delete, flag",
	"note [TEXT]",
	"import FILE, export FILE",
}

func (m Model) bindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Prev + "/" + m.Keys.Next, Action: "previous / next day"},
		{Key: m.Keys.Up + "/" + m.Keys.Down, Action: "move selection"},
		{Key: m.Keys.Today, Action: "jump to today"},
		{Key: m.Keys.Goto, Action: "go to a day"},
		{Key: m.Keys.Flag, Action: "toggle alarm"},
		{Key: m.Keys.Delete, Action: "delete item"},
		{Key: m.Keys.Save, Action: "save now"},
		{Key: "pgup/pgdown", Action: "scroll note"},
		{Key: m.Keys.Palette, Action: "open command palette"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.bindings()))
	for _, kb := range m.bindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}

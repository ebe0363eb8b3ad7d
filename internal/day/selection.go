package day

import (
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
)

// Selection identifies a selected entry across view rebuilds.
type Selection struct {
	Order time.Time
	Ref   any
}

func SelectionOf(e Entry) Selection {
	return Selection{Order: e.Order, Ref: e.Ref()}
}

// Selectable reports whether a cursor may rest on e.
func (e Entry) Selectable() bool {
	return e.Kind.IsItem() || e.Kind == KindEmptyDay
}

// Locate finds sel in a rebuilt view. It tries the same order and item, then
// the same item anywhere, then the first selectable entry on the selection's
// day, and falls back to index 0.
func Locate(entries []Entry, sel Selection) int {
	if sel.Ref != nil {
		for i, e := range entries {
			if e.Order.Equal(sel.Order) && e.Ref() == sel.Ref {
				return i
			}
		}
		for i, e := range entries {
			if e.Ref() == sel.Ref {
				return i
			}
		}
	}
	if !sel.Order.IsZero() {
		for i, e := range entries {
			if e.Selectable() && date.SameDay(e.Day, sel.Order) {
				return i
			}
		}
	}
	return 0
}

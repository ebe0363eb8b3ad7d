package storage

import "time"

const (
	KindEvent            = "event"
	KindAppointment      = "appointment"
	KindRecurEvent       = "recur_event"
	KindRecurAppointment = "recur_appointment"
)

// Item is one persisted calendar item. Untimed kinds carry Day as a civil
// date (YYYY-MM-DD); timed kinds carry StartAt.
type Item struct {
	ID         string
	Kind       string
	Day        string
	StartAt    *time.Time
	Duration   time.Duration
	EventID    int
	State      int
	Mesg       string
	Note       string
	Rule       *Rule
	Exceptions []string
	CreatedAt  time.Time
}

func (it Item) Recurring() bool {
	return it.Kind == KindRecurEvent || it.Kind == KindRecurAppointment
}

// Rule is the persisted recurrence of a recurring item. UntilDay is empty
// for unbounded rules.
type Rule struct {
	Type       string
	Interval   int
	UntilDay   string
	ByMonth    []int
	ByWeekday  []int
	ByMonthDay []int
}

type ItemListFilter struct {
	Kind   string
	Limit  int
	Offset int
}

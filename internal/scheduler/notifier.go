package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/day"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
)

var ErrUnknownFilter = errors.New("scheduler: unknown notify filter")

// Alarm is emitted when an appointment enters its warning window.
type Alarm struct {
	Start     time.Time
	FireAt    time.Time
	Mesg      string
	Ref       any
	Recurring bool
}

// Sink receives every alarm after it has been queued on C.
type Sink interface {
	Notify(Alarm) error
}

type NotifierOptions struct {
	// Warning is how long before the start an alarm fires.
	Warning time.Duration
	// Filter is one of "all", "flagged" or "unflagged". Empty means flagged.
	Filter string
	Buffer int
	Tick   time.Duration
	// Poll bounds how stale the cached next appointment may get.
	Poll time.Duration
	Now  func() time.Time
	Sink Sink
}

type firedKey struct {
	ref   any
	start int64
}

type Notifier struct {
	cal  *calendar.Calendar
	opts NotifierOptions
	keep func(day.Upcoming) bool

	mu       sync.Mutex
	next     mo.Option[day.Upcoming]
	pending  mo.Option[day.Upcoming]
	polledAt time.Time
	fired    map[firedKey]time.Time

	out     chan Alarm
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

// FilterFor maps a notify filter name to the occurrences it admits.
func FilterFor(name string) (func(day.Upcoming) bool, error) {
	switch name {
	case "all":
		return func(day.Upcoming) bool { return true }, nil
	case "", "flagged":
		return func(u day.Upcoming) bool { return u.State.Has(model.StateNotify) }, nil
	case "unflagged":
		return func(u day.Upcoming) bool { return !u.State.Has(model.StateNotify) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

// NewNotifier watches cal and re-polls whenever any store changes.
func NewNotifier(cal *calendar.Calendar, opts NotifierOptions) (*Notifier, error) {
	keep, err := FilterFor(opts.Filter)
	if err != nil {
		return nil, err
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Poll <= 0 {
		opts.Poll = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	n := &Notifier{
		cal:    cal,
		opts:   opts,
		keep:   keep,
		fired:  make(map[firedKey]time.Time),
		out:    make(chan Alarm, opts.Buffer),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	cal.OnChange(n.Kick)
	return n, nil
}

func (n *Notifier) C() <-chan Alarm {
	return n.out
}

func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	go n.loop()
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.started || n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	close(n.stopCh)
	n.mu.Unlock()
	<-n.doneCh
}

// Kick forces a re-poll on the next loop iteration.
func (n *Notifier) Kick() {
	select {
	case n.wakeup <- struct{}{}:
	default:
	}
}

// Next returns the upcoming appointment admitted by the filter, fired or
// not, as of the last poll.
func (n *Notifier) Next() mo.Option[day.Upcoming] {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.next
}

func (n *Notifier) Dropped() uint64 {
	return atomic.LoadUint64(&n.dropped)
}

func (n *Notifier) loop() {
	defer close(n.doneCh)
	defer close(n.out)

	n.checkAt(n.opts.Now(), true)
	var timer *time.Timer
	for {
		timer = resetTimer(timer, n.opts.Tick)
		select {
		case <-timer.C:
			n.checkAt(n.opts.Now(), false)
		case <-n.wakeup:
			n.checkAt(n.opts.Now(), true)
		case <-n.stopCh:
			stopTimer(timer)
			return
		}
	}
}

// checkAt fires every pending occurrence whose warning window has opened.
func (n *Notifier) checkAt(now time.Time, repoll bool) {
	n.mu.Lock()
	stale := repoll || now.Sub(n.polledAt) >= n.opts.Poll || now.Before(n.polledAt)
	n.mu.Unlock()
	if stale {
		n.poll(now)
	}
	for {
		n.mu.Lock()
		cand, ok := n.pending.Get()
		n.mu.Unlock()
		if !ok || now.Before(cand.Start.Add(-n.opts.Warning)) {
			return
		}
		n.fire(cand, now)
		n.poll(now)
	}
}

func (n *Notifier) poll(now time.Time) {
	next := day.NextUpcomingMatching(n.cal, now, n.keep)

	n.mu.Lock()
	for k, start := range n.fired {
		if now.Sub(start) > day.Lookahead {
			delete(n.fired, k)
		}
	}
	fired := make(map[firedKey]bool, len(n.fired))
	for k := range n.fired {
		fired[k] = true
	}
	n.mu.Unlock()

	pending := day.NextUpcomingMatching(n.cal, now, func(u day.Upcoming) bool {
		if !n.keep(u) || u.State.Has(model.StateNotified) {
			return false
		}
		return !fired[firedKey{ref: u.Ref(), start: u.Start.Unix()}]
	})

	n.mu.Lock()
	n.next = next
	n.pending = pending
	n.polledAt = now
	n.mu.Unlock()
}

func (n *Notifier) fire(u day.Upcoming, now time.Time) {
	n.mu.Lock()
	n.fired[firedKey{ref: u.Ref(), start: u.Start.Unix()}] = u.Start
	n.mu.Unlock()

	if u.Apt != nil {
		if _, err := n.cal.MarkNotified(u.Apt); err != nil {
			log.Warn("notifier: mark notified failed", "mesg", u.Mesg, "err", err)
		}
	}

	alarm := Alarm{Start: u.Start, FireAt: now, Mesg: u.Mesg, Ref: u.Ref(), Recurring: u.Recurring()}
	select {
	case n.out <- alarm:
	default:
		atomic.AddUint64(&n.dropped, 1)
	}
	log.Info("appointment alarm", "mesg", u.Mesg, "start", u.Start.Format(time.RFC3339))
	if n.opts.Sink != nil {
		if err := n.opts.Sink.Notify(alarm); err != nil {
			log.Warn("notifier: sink failed", "err", err)
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

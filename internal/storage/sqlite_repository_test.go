package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "agenda-test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func TestItemCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC)

	apt := Item{
		ID:        "apt-1",
		Kind:      KindAppointment,
		StartAt:   &start,
		Duration:  45 * time.Minute,
		State:     1,
		Mesg:      "dentist",
		Note:      "0123456789abcdef0123456789abcdef01234567",
		CreatedAt: created,
	}
	if err := repo.CreateItem(ctx, apt); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	weekly := Item{
		ID:         "rec-1",
		Kind:       KindRecurEvent,
		Day:        "2026-10-19",
		Mesg:       "bins",
		Rule:       &Rule{Type: "weekly", Interval: 2, UntilDay: "2027-01-31", ByWeekday: []int{1, 4}},
		Exceptions: []string{"2026-11-02", "2026-11-16"},
		CreatedAt:  created,
	}
	if err := repo.CreateItem(ctx, weekly); err != nil {
		t.Fatalf("create recurring event: %v", err)
	}

	got, err := repo.GetItem(ctx, apt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.StartAt == nil || !got.StartAt.Equal(start) || got.Duration != 45*time.Minute || got.Day != "" {
		t.Fatalf("unexpected appointment: %#v", got)
	}

	rec, err := repo.GetItem(ctx, weekly.ID)
	if err != nil {
		t.Fatalf("get recurring event: %v", err)
	}
	if !reflect.DeepEqual(rec.Rule, weekly.Rule) {
		t.Fatalf("rule mismatch: %#v", rec.Rule)
	}
	if !reflect.DeepEqual(rec.Exceptions, weekly.Exceptions) {
		t.Fatalf("exceptions mismatch: %#v", rec.Exceptions)
	}

	events, err := repo.ListItems(ctx, ItemListFilter{Kind: KindRecurEvent})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != weekly.ID || events[0].Rule == nil {
		t.Fatalf("unexpected list: %#v", events)
	}

	page, err := repo.ListItems(ctx, ItemListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("unexpected page size %d", len(page))
	}

	if err := repo.DeleteItem(ctx, weekly.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetItem(ctx, weekly.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteItem(ctx, weekly.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateRejectsRecurringWithoutRule(t *testing.T) {
	repo := setupRepo(t)
	err := repo.CreateItem(context.Background(), Item{
		ID: "bad", Kind: KindRecurEvent, Day: "2026-10-19", Mesg: "x", CreatedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for recurring item without rule")
	}
	if _, err := repo.GetItem(context.Background(), "bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial insert left behind: %v", err)
	}
}

func TestCalendarSaveLoadRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	loc := time.FixedZone("CET", 3600)
	src := calendar.New(loc)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	if _, err := src.AddEvent(model.Event{Day: day, Mesg: "holiday", Note: "n1"}); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if _, err := src.AddAppointment(model.Appointment{Start: day.Add(9 * time.Hour), Dur: time.Hour, Mesg: "standup", State: model.StateNotify}); err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	if _, err := src.AddRecurEvent(model.RecurEvent{
		Event: model.Event{Day: day, Mesg: "payday"},
		Rule:  model.Rule{Type: model.RecurMonthly, Freq: 1, ByMonthDay: []int{19, -1}},
	}); err != nil {
		t.Fatalf("add recurring event: %v", err)
	}
	if _, err := src.AddRecurApt(model.RecurApt{
		Appointment: model.Appointment{Start: day.Add(23 * time.Hour), Dur: 2 * time.Hour, Mesg: "night shift"},
		Rule:        model.Rule{Type: model.RecurWeekly, Freq: 1, Until: day.AddDate(0, 2, 0)},
		Exc:         model.NewExceptions(day.AddDate(0, 0, 7)),
	}); err != nil {
		t.Fatalf("add recurring appointment: %v", err)
	}

	n, err := SaveCalendar(ctx, repo, src)
	if err != nil || n != 4 {
		t.Fatalf("save = %d, %v", n, err)
	}
	// A second save replaces rather than appends.
	if _, err := SaveCalendar(ctx, repo, src); err != nil {
		t.Fatalf("second save: %v", err)
	}

	dst := calendar.New(loc)
	stats, err := LoadCalendar(ctx, repo, dst)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Loaded != 4 || stats.Rejected != 0 {
		t.Fatalf("unexpected load stats: %+v", stats)
	}

	apts := dst.Apts.Snapshot()
	if len(apts) != 1 || !apts[0].Start.Equal(day.Add(9*time.Hour)) || !apts[0].State.Has(model.StateNotify) {
		t.Fatalf("unexpected appointments: %#v", apts)
	}
	events := dst.Events.Snapshot()
	if len(events) != 1 || !events[0].Day.Equal(day) || events[0].Note != "n1" {
		t.Fatalf("unexpected events: %#v", events)
	}
	recEvents := dst.RecurEvents.Snapshot()
	if len(recEvents) != 1 || !reflect.DeepEqual(recEvents[0].Rule.ByMonthDay, []int{19, -1}) {
		t.Fatalf("unexpected recurring events: %#v", recEvents)
	}
	recApts := dst.RecurApts.Snapshot()
	if len(recApts) != 1 {
		t.Fatalf("unexpected recurring appointments: %#v", recApts)
	}
	if !recApts[0].Rule.Until.Equal(day.AddDate(0, 2, 0)) || !recApts[0].Exc.Contains(day.AddDate(0, 0, 7)) {
		t.Fatalf("rule or exceptions lost: %#v", recApts[0])
	}
}

func TestLoadCalendarSkipsInvalidRows(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Now()
	items := []Item{
		{ID: "ok", Kind: KindEvent, Day: "2026-10-19", Mesg: "fine", CreatedAt: now},
		{ID: "off-day", Kind: KindRecurEvent, Day: "2026-10-19", Mesg: "tuesdays",
			Rule: &Rule{Type: "weekly", Interval: 1, ByWeekday: []int{2}}, CreatedAt: now},
	}
	if err := repo.ReplaceItems(ctx, items); err != nil {
		t.Fatalf("replace: %v", err)
	}
	cal := calendar.New(time.UTC)
	stats, err := LoadCalendar(ctx, repo, cal)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Loaded != 1 || stats.Rejected != 1 || cal.Len() != 1 {
		t.Fatalf("unexpected stats %+v with %d items", stats, cal.Len())
	}
}

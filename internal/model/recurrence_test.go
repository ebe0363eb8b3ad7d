package model

import (
	"errors"
	"testing"
	"time"
)

func TestRuleValidate(t *testing.T) {
	valid := []Rule{
		{Type: RecurDaily, Freq: 1},
		{Type: RecurWeekly, Freq: 2, ByWeekday: []int{EncodeWeekday(time.Monday, 0), EncodeWeekday(time.Wednesday, 0)}},
		{Type: RecurMonthly, Freq: 1, ByWeekday: []int{EncodeWeekday(time.Friday, -1)}},
		{Type: RecurMonthly, Freq: 1, ByMonthDay: []int{1, -1}},
		{Type: RecurYearly, Freq: 1, ByMonth: []int{11}, ByWeekday: []int{EncodeWeekday(time.Thursday, 4)}},
		{Type: RecurYearly, Freq: 1, ByWeekday: []int{EncodeWeekday(time.Monday, 20)}},
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Fatalf("expected %+v valid, got %v", r, err)
		}
	}

	invalid := []struct {
		rule Rule
		want error
	}{
		{Rule{Type: "hourly", Freq: 1}, ErrInvalidRecurrenceType},
		{Rule{Type: RecurDaily, Freq: 0}, ErrInvalidInterval},
		{Rule{Type: RecurMonthly, Freq: 1, ByMonth: []int{13}}, ErrInvalidByMonth},
		{Rule{Type: RecurMonthly, Freq: 1, ByMonthDay: []int{0}}, ErrInvalidByMonthDay},
		{Rule{Type: RecurMonthly, Freq: 1, ByMonthDay: []int{-32}}, ErrInvalidByMonthDay},
		{Rule{Type: RecurWeekly, Freq: 1, ByMonthDay: []int{3}}, ErrInvalidByMonthDay},
		{Rule{Type: RecurWeekly, Freq: 1, ByWeekday: []int{EncodeWeekday(time.Monday, 1)}}, ErrInvalidByWeekday},
		{Rule{Type: RecurDaily, Freq: 1, ByWeekday: []int{EncodeWeekday(time.Monday, -1)}}, ErrInvalidByWeekday},
		{Rule{Type: RecurMonthly, Freq: 1, ByWeekday: []int{EncodeWeekday(time.Monday, 6)}}, ErrInvalidByWeekday},
	}
	for _, tc := range invalid {
		if err := tc.rule.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("validate %+v = %v, want %v", tc.rule, err, tc.want)
		}
	}
}

func TestWeekdayEncodingRoundTrip(t *testing.T) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		for _, ord := range []int{-5, -1, 0, 1, 2, 5, 53} {
			v := EncodeWeekday(wd, ord)
			gotWd, gotOrd := DecodeWeekday(v)
			if gotWd != wd || gotOrd != ord {
				t.Fatalf("decode(encode(%s,%d)) = %s,%d", wd, ord, gotWd, gotOrd)
			}
		}
	}
	if got := EncodeWeekday(time.Tuesday, 2); got != 16 {
		t.Fatalf("2nd tuesday encodes to %d, want 16", got)
	}
	if got := EncodeWeekday(time.Friday, -1); got != -12 {
		t.Fatalf("last friday encodes to %d, want -12", got)
	}
}

func TestRuleDuplicateIsDeep(t *testing.T) {
	r := Rule{Type: RecurMonthly, Freq: 1, ByMonthDay: []int{1, 15}}
	cp := r.Duplicate()
	cp.ByMonthDay[0] = 2
	if r.ByMonthDay[0] != 1 {
		t.Fatalf("duplicate shares bymonthday: %v", r.ByMonthDay)
	}
}

func TestRuleDescribe(t *testing.T) {
	r := Rule{
		Type:      RecurWeekly,
		Freq:      2,
		ByWeekday: []int{EncodeWeekday(time.Monday, 0)},
		Until:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if got := r.Describe(); got != "every 2 weeks on MO until 2026-12-31" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestExceptionsIdempotent(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	var exc Exceptions
	exc.Add(day)
	exc.Add(day.Add(9 * time.Hour))
	if exc.Len() != 1 {
		t.Fatalf("expected a single exception, got %d", exc.Len())
	}
	if !exc.Contains(day.Add(23 * time.Hour)) {
		t.Fatal("expected exception to match any time of the day")
	}
	if exc.Remove(day.AddDate(0, 0, 1)) {
		t.Fatal("removing an absent day must report false")
	}
	if !exc.Remove(day) || exc.Len() != 0 {
		t.Fatalf("expected removal, got %d left", exc.Len())
	}

	exc = NewExceptions(day.AddDate(0, 0, 2), day, day.AddDate(0, 0, 1))
	got := exc.Days()
	for i := 1; i < len(got); i++ {
		if !got[i-1].Before(got[i]) {
			t.Fatalf("exceptions not sorted: %v", got)
		}
	}
	dup := exc.Duplicate()
	dup.Add(day.AddDate(0, 0, 9))
	if exc.Len() != 3 {
		t.Fatalf("duplicate shares storage: %d", exc.Len())
	}
}

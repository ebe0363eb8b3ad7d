package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/day"
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Print the items of one or more days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		raw, _ := cmd.Flags().GetString("date")
		start, err := date.ParseDay(raw, time.Now().In(a.cal.Location()))
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = a.cfg.DaysAhead
		}
		printDays(cmd.OutOrStdout(), a.cal, start, days)
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next appointment within 24 hours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		printNext(cmd.OutOrStdout(), a.cal, time.Now().In(a.cal.Location()))
		return nil
	},
}

func init() {
	dayCmd.Flags().String("date", "today", "first day: YYYY-MM-DD, today, tomorrow or +N")
	dayCmd.Flags().Int("days", 1, "number of days; 0 uses days_ahead from the config")
}

// printDays writes each day that has items, skipping empty days.
func printDays(w io.Writer, cal *calendar.Calendar, start time.Time, days int) {
	entries, _ := day.Build(cal, start, days, day.Options{Captions: true})
	var pending []day.Entry
	for _, e := range entries {
		switch {
		case e.Kind == day.KindHeading:
			pending = pending[:0]
		case e.Kind.IsItem():
			pending = append(pending, e)
		case e.Kind == day.KindEndOfDay && len(pending) > 0:
			fmt.Fprintf(w, "%s:\n", e.Day.Format("2006-01-02 Mon"))
			for _, it := range pending {
				printEntry(w, it)
			}
			fmt.Fprintln(w)
		}
	}
}

func printEntry(w io.Writer, e day.Entry) {
	mark := ""
	if e.Kind.IsRecurring() {
		mark = " (repeats)"
	}
	if e.Kind.IsEvent() {
		fmt.Fprintf(w, " * %s%s\n", e.Mesg, mark)
		return
	}
	from, to := "..:..", "..:.."
	if !e.Spanning() {
		from = e.Start.Format("15:04")
	}
	if end := e.End(); end.Before(date.NextDay(e.Day)) {
		to = end.Format("15:04")
	}
	fmt.Fprintf(w, " - %s -> %s %s%s\n", from, to, e.Mesg, mark)
}

func printNext(w io.Writer, cal *calendar.Calendar, now time.Time) {
	u, ok := day.NextUpcoming(cal, now).Get()
	if !ok {
		fmt.Fprintln(w, "no appointment in the next 24 hours")
		return
	}
	left := u.Start.Sub(now)
	fmt.Fprintf(w, "next appointment:\n   [%02d:%02d] %s\n", int(left.Hours()), int(left.Minutes())%60, u.Mesg)
}

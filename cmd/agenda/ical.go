package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/agenda/internal/ical"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import events and appointments from an iCalendar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		var report io.Writer = io.Discard
		if path, _ := cmd.Flags().GetString("log"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			report = f
		}

		stats, err := ical.Import(in, a.cal, ical.ImportOptions{
			Notes: a.notes,
			Log: func(e *ical.ImportItemSkipped) {
				fmt.Fprintln(report, e.Error())
			},
		})
		if err != nil {
			return err
		}
		if err := a.save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Import process report: %d lines read\n", stats.Lines)
		fmt.Fprintf(cmd.OutOrStdout(), "%d apps / %d events / %d todos / %d skipped\n",
			stats.Appointments, stats.Events, stats.Todos, stats.Skipped)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export the calendar as iCalendar, to stdout without FILE",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := ical.ExportOptions{Notes: a.notes, AlarmLead: a.cfg.NotifyWarning()}
		if len(args) == 0 {
			return ical.Export(a.cal, cmd.OutOrStdout(), opts)
		}
		out, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := ical.Export(a.cal, out, opts); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	},
}

func init() {
	importCmd.Flags().String("log", "", "write skipped items to this file")
}

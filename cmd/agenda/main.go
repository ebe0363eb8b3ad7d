package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/scheduler"
	"github.com/sandeepkv93/agenda/internal/update"
)

var rootCmd = &cobra.Command{
	Use:           "agenda",
	Short:         "A terminal calendar and scheduling organizer.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInteractive(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is <user config dir>/agenda/config.yaml)")
	rootCmd.PersistentFlags().String("data", "", "calendar database file")
	rootCmd.PersistentFlags().String("notes", "", "directory holding notes")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")

	for _, name := range []string{"config", "data", "notes", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("agenda")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(dayCmd, nextCmd, importCmd, exportCmd, daemonCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agenda: %v\n", err)
		os.Exit(1)
	}
}

// newNotifier builds the alarm notifier the configuration asks for.
func newNotifier(a *app) (*scheduler.Notifier, error) {
	opts := scheduler.NotifierOptions{
		Warning: a.cfg.NotifyWarning(),
		Filter:  a.cfg.NotifyFilter,
		Buffer:  a.cfg.SchedulerBuffer,
	}
	if a.cfg.DesktopNotifications {
		opts.Sink = scheduler.DesktopSink{}
	}
	return scheduler.NewNotifier(a.cal, opts)
}

func runInteractive(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier, err := newNotifier(a)
	if err != nil {
		return err
	}
	program := tea.NewProgram(update.NewModel(update.Options{
		Cal:      a.cal,
		Notes:    a.notes,
		Notifier: notifier,
		Config:   a.cfg,
		Save:     a.save,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	// Hooks also fire from inside Update, where a blocking Send would hang.
	a.cal.OnChange(func() { go program.Send(update.CalendarChangedMsg{}) })

	jobs, err := scheduler.NewJobs(scheduler.JobsOptions{
		Location: a.cal.Location(),
		Autosave: a.cfg.Autosave(),
		Midnight: func() { go program.Send(update.DayChangedMsg{}) },
		Save:     a.save,
	})
	if err != nil {
		return err
	}

	notifier.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return jobs.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	err = g.Wait()
	notifier.Stop()

	if saveErr := a.save(); saveErr != nil {
		return errors.Join(err, fmt.Errorf("save on exit: %w", saveErr))
	}
	a.pruneNotes()
	return err
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the notifier and housekeeping jobs without the interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		notifier, err := newNotifier(a)
		if err != nil {
			return err
		}
		jobs, err := scheduler.NewJobs(scheduler.JobsOptions{
			Location: a.cal.Location(),
			Autosave: a.cfg.Autosave(),
			Midnight: notifier.Kick,
			Save:     a.save,
		})
		if err != nil {
			return err
		}

		log.Info("daemon started", "items", a.cal.Len(), "filter", a.cfg.NotifyFilter)
		notifier.Start()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return jobs.Run(gctx) })
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case alarm, ok := <-notifier.C():
					if !ok {
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", alarm.Start.Format("15:04"), alarm.Mesg)
				}
			}
		})
		err = g.Wait()
		notifier.Stop()
		if saveErr := a.save(); saveErr != nil {
			return errors.Join(err, saveErr)
		}
		log.Info("daemon stopped")
		return err
	},
}

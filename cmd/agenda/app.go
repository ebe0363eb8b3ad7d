package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/sandeepkv93/agenda/internal/calendar"
	"github.com/sandeepkv93/agenda/internal/config"
	"github.com/sandeepkv93/agenda/internal/log"
	"github.com/sandeepkv93/agenda/internal/model"
	"github.com/sandeepkv93/agenda/internal/note"
	"github.com/sandeepkv93/agenda/internal/storage"
)

// app is one opened calendar: configuration, database and note store.
type app struct {
	cfg   config.Config
	cal   *calendar.Calendar
	repo  *storage.SQLiteRepository
	notes *note.Store

	saveMu  sync.Mutex
	logFile *os.File
}

// loadConfig reads the config file and applies environment and flag
// overrides, in that order.
func loadConfig() (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	base, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.FromEnv(*base)
	if v := viper.GetString("data"); v != "" {
		cfg.DataPath = v
	}
	if v := viper.GetString("notes"); v != "" {
		cfg.NotesDir = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	cfg.Normalize()
	return cfg, nil
}

// openApp loads the calendar. When interactive is set logging goes to the
// configured log file, or nowhere, so it cannot draw over the screen.
func openApp(ctx context.Context, interactive bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	if err := a.setupLogging(interactive); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn("falling back to local time", "err", err)
	}
	a.cal = calendar.New(loc)

	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o700); err != nil {
		a.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if a.repo, err = storage.OpenSQLite(cfg.DataPath); err != nil {
		a.Close()
		return nil, err
	}
	if a.notes, err = note.Open(cfg.NotesDir); err != nil {
		a.Close()
		return nil, err
	}
	if _, err := storage.LoadCalendar(ctx, a.repo, a.cal); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging(interactive bool) error {
	if err := log.SetLevel(a.cfg.LogLevel); err != nil {
		return err
	}
	switch {
	case a.cfg.LogFile != "":
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		log.SetOutput(f)
	case interactive:
		log.SetOutput(io.Discard)
	}
	return nil
}

func (a *app) save() error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	_, err := storage.SaveCalendar(context.Background(), a.repo, a.cal)
	return err
}

// pruneNotes removes note files no item refers to.
func (a *app) pruneNotes() {
	keep := make(map[string]bool)
	mark := func(ref string) {
		if ref != "" {
			keep[ref] = true
		}
	}
	a.cal.Events.ForEach(func(e *model.Event) { mark(e.Note) })
	a.cal.RecurEvents.ForEach(func(r *model.RecurEvent) { mark(r.Note) })
	a.cal.Apts.ForEach(func(ap *model.Appointment) { mark(ap.Note) })
	a.cal.RecurApts.ForEach(func(r *model.RecurApt) { mark(r.Note) })
	n, err := a.notes.Prune(keep)
	if err != nil {
		log.Warn("note cleanup failed", "err", err)
		return
	}
	if n > 0 {
		log.Info("removed unused notes", "count", n)
	}
}

func (a *app) Close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			log.Error("close database", err)
		}
	}
	if a.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = a.logFile.Close()
	}
}

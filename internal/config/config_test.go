package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AutosaveMinutes != 5 || cfg.BusySlices != 24 || cfg.DaysAhead != 7 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.NotifyFilter != NotifyFlagged || cfg.NotifyWarning() != 5*time.Minute {
		t.Fatalf("unexpected notify defaults: %+v", cfg)
	}
	if filepath.Base(cfg.DataPath) != "agenda.db" {
		t.Fatalf("unexpected data path: %s", cfg.DataPath)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BusySlices != 24 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected permissions %v", info.Mode().Perm())
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "data_path: /tmp/cal/agenda.db\nnotify_filter: sometimes\nbusy_slices: -3\ntimezone: Europe/Paris\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NotesDir != "/tmp/cal/notes" {
		t.Fatalf("notes dir not derived from data path: %s", cfg.NotesDir)
	}
	if cfg.NotifyFilter != NotifyFlagged || cfg.BusySlices != 24 {
		t.Fatalf("invalid values kept: %+v", cfg)
	}
	if cfg.Timezone != "Europe/Paris" {
		t.Fatalf("timezone lost: %s", cfg.Timezone)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.DaysAhead = 14
	cfg.DesktopNotifications = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DaysAhead != 14 || !got.DesktopNotifications {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AGENDA_DESKTOP_NOTIFICATIONS", "yes")
	t.Setenv("AGENDA_AUTOSAVE_MINUTES", "0")
	t.Setenv("AGENDA_NOTIFY_FILTER", "ALL")
	t.Setenv("AGENDA_BUSY_SLICES", "48")
	t.Setenv("AGENDA_DAYS_AHEAD", "nope")
	t.Setenv("AGENDA_DATA_PATH", "/srv/agenda.db")

	cfg := FromEnv(*DefaultConfig())
	if !cfg.DesktopNotifications || cfg.AutosaveMinutes != 0 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.NotifyFilter != NotifyAll || cfg.BusySlices != 48 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.DaysAhead != 7 {
		t.Fatalf("unparseable value applied: %d", cfg.DaysAhead)
	}
	if cfg.DataPath != "/srv/agenda.db" {
		t.Fatalf("unexpected data path: %s", cfg.DataPath)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("local zone = %v, %v", loc, err)
	}
	cfg.Timezone = "Not/AZone"
	loc, err = cfg.Location()
	if err == nil || loc != time.Local {
		t.Fatalf("unknown zone = %v, %v", loc, err)
	}
}

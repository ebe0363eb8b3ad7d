// Package config holds the user configuration: a YAML file created with
// defaults on first run, overridable through AGENDA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	NotifyAll       = "all"
	NotifyFlagged   = "flagged"
	NotifyUnflagged = "unflagged"
)

type Config struct {
	// DataPath is the sqlite database holding the calendar.
	DataPath string `yaml:"data_path"`
	// NotesDir holds note files named by content hash.
	NotesDir string `yaml:"notes_dir"`
	// Timezone is an IANA zone name or "Local".
	Timezone string `yaml:"timezone"`

	// AutosaveMinutes is the autosave period; 0 disables autosave.
	AutosaveMinutes int `yaml:"autosave_minutes"`

	NotifyBar bool `yaml:"notify_bar"`
	// NotifyWarningSeconds is how long before an appointment its
	// notification fires.
	NotifyWarningSeconds int `yaml:"notify_warning_seconds"`
	// NotifyFilter selects which appointments notify: all, flagged or
	// unflagged.
	NotifyFilter         string `yaml:"notify_filter"`
	DesktopNotifications bool   `yaml:"desktop_notifications"`

	BlankLine  bool `yaml:"blank_line"`
	BusySlices int  `yaml:"busy_slices"`
	DaysAhead  int  `yaml:"days_ahead"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	SchedulerBuffer int `yaml:"scheduler_buffer"`
}

// DefaultDir is the directory holding the config file, database and notes.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "agenda")
	}
	return ".agenda"
}

func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		DataPath:             filepath.Join(dir, "agenda.db"),
		NotesDir:             filepath.Join(dir, "notes"),
		Timezone:             "Local",
		AutosaveMinutes:      5,
		NotifyBar:            true,
		NotifyWarningSeconds: 300,
		NotifyFilter:         NotifyFlagged,
		DesktopNotifications: false,
		BlankLine:            true,
		BusySlices:           24,
		DaysAhead:            7,
		LogLevel:             "info",
		LogFile:              filepath.Join(dir, "agenda.log"),
		SchedulerBuffer:      64,
	}
}

// Normalize replaces missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if strings.TrimSpace(c.DataPath) == "" {
		c.DataPath = def.DataPath
	}
	if strings.TrimSpace(c.NotesDir) == "" {
		c.NotesDir = filepath.Join(filepath.Dir(c.DataPath), "notes")
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = def.Timezone
	}
	if c.AutosaveMinutes < 0 {
		c.AutosaveMinutes = 0
	}
	if c.NotifyWarningSeconds < 0 {
		c.NotifyWarningSeconds = def.NotifyWarningSeconds
	}
	switch c.NotifyFilter {
	case NotifyAll, NotifyFlagged, NotifyUnflagged:
	default:
		c.NotifyFilter = def.NotifyFilter
	}
	if c.BusySlices <= 0 {
		c.BusySlices = def.BusySlices
	}
	if c.DaysAhead <= 0 {
		c.DaysAhead = def.DaysAhead
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if c.SchedulerBuffer <= 0 {
		c.SchedulerBuffer = def.SchedulerBuffer
	}
}

// Location resolves Timezone. Unknown zones fall back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) NotifyWarning() time.Duration {
	return time.Duration(c.NotifyWarningSeconds) * time.Second
}

func (c *Config) Autosave() time.Duration {
	return time.Duration(c.AutosaveMinutes) * time.Minute
}

// Load reads the YAML file at path. A missing file is created with the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path through a temp file and rename, leaving the file
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// FromEnv returns base with AGENDA_* overrides applied. Unparseable values
// are ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("AGENDA_DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := getEnvString("AGENDA_NOTES_DIR"); ok {
		cfg.NotesDir = v
	}
	if v, ok := getEnvString("AGENDA_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvInt("AGENDA_AUTOSAVE_MINUTES"); ok && v >= 0 {
		cfg.AutosaveMinutes = v
	}
	if v, ok := getEnvBool("AGENDA_NOTIFY_BAR"); ok {
		cfg.NotifyBar = v
	}
	if v, ok := getEnvInt("AGENDA_NOTIFY_WARNING_SECONDS"); ok && v >= 0 {
		cfg.NotifyWarningSeconds = v
	}
	if v, ok := getEnvString("AGENDA_NOTIFY_FILTER"); ok {
		cfg.NotifyFilter = strings.ToLower(v)
	}
	if v, ok := getEnvBool("AGENDA_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvBool("AGENDA_BLANK_LINE"); ok {
		cfg.BlankLine = v
	}
	if v, ok := getEnvInt("AGENDA_BUSY_SLICES"); ok && v > 0 {
		cfg.BusySlices = v
	}
	if v, ok := getEnvInt("AGENDA_DAYS_AHEAD"); ok && v > 0 {
		cfg.DaysAhead = v
	}
	if v, ok := getEnvString("AGENDA_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("AGENDA_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvInt("AGENDA_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

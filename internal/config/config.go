// Package config holds the daemon configuration and its YAML load/save
// behavior, including first-run config creation and 0600 permissions. The
// loaded Config doubles as the settings collaborator for the reconciler:
// the restricted-access flag and the default reminder list live here.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"google.golang.org/api/calendar/v3"
	"gopkg.in/yaml.v3"
)

// ReminderConfig is one site-wide default reminder.
type ReminderConfig struct {
	Method  string `yaml:"method" json:"method"`
	Minutes int64  `yaml:"minutes" json:"minutes"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// CalendarID is the remote calendar to reconcile from.
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`

	// TaskListID is the remote task list to reconcile from.
	TaskListID string `yaml:"task_list" json:"task_list"`

	// Token is the OAuth access token used by the remote client.
	Token string `yaml:"token" json:"-"`

	// SyncCron is a cron-style schedule string (e.g. "*/15 * * * *") for
	// periodic reconciliation runs.
	SyncCron string `yaml:"sync" json:"sync"`

	// StoreDir is the destination store directory.
	StoreDir string `yaml:"store_dir" json:"store_dir"`

	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// Locale selects localized strings (the busy placeholder title).
	Locale string `yaml:"locale" json:"locale"`

	// RestrictedAccess replaces imported event titles with the localized
	// busy placeholder.
	RestrictedAccess bool `yaml:"restricted_access" json:"restricted_access"`

	// DefaultReminders is the site-wide default reminder list.
	DefaultReminders []ReminderConfig `yaml:"default_reminders" json:"default_reminders"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// status endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		CalendarID: "primary",
		TaskListID: "@default",
		SyncCron:   "*/15 * * * *",
		StoreDir:   "./var/store",
		Listen:     "127.0.0.1:8080",
		Locale:     "en",
	}
}

// Normalize fills in missing/zero values with defaults so partially filled
// configs still behave.
func (c *Config) Normalize() {
	if c.CalendarID == "" {
		c.CalendarID = "primary"
	}
	if c.TaskListID == "" {
		c.TaskListID = "@default"
	}
	if c.SyncCron == "" {
		c.SyncCron = "*/15 * * * *"
	}
	if c.StoreDir == "" {
		c.StoreDir = "./var/store"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
}

// RestrictedAccessFlag reads the restricted-access setting. It is part of
// the settings collaborator surface consumed once per batch.
func (c *Config) RestrictedAccessFlag(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.RestrictedAccess, nil
}

// Reminders materializes the default reminder list in wire form.
func (c *Config) Reminders(ctx context.Context) ([]*calendar.EventReminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*calendar.EventReminder, 0, len(c.DefaultReminders))
	for _, r := range c.DefaultReminders {
		out = append(out, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}
	return out, nil
}

// Load loads configuration from the given YAML path. A missing file is a
// first run: a default config is written (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if serr := Save(path, cfg); serr != nil {
				return cfg, serr
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
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

	tmp, err := os.CreateTemp(dir, ".gcalsync-config-*.tmp")
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

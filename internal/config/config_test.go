package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.Normalize()

	want := *DefaultConfig()
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("normalized zero config mismatch (-got +want):\n%s", diff)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := Config{CalendarID: "team@example.com", Listen: "0.0.0.0:9000"}
	cfg.Normalize()

	if cfg.CalendarID != "team@example.com" {
		t.Errorf("calendar_id = %q, overwritten by default", cfg.CalendarID)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q, overwritten by default", cfg.Listen)
	}
	if cfg.TaskListID != "@default" {
		t.Errorf("task_list = %q, want default fill", cfg.TaskListID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	cfg := DefaultConfig()
	cfg.CalendarID = "team@example.com"
	cfg.RestrictedAccess = true
	cfg.Token = "secret-token"
	cfg.DefaultReminders = []ReminderConfig{{Method: "popup", Minutes: 10}}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "pw"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("config mode = %o, want 0600", got)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(loaded, cfg); diff != "" {
		t.Errorf("round trip mismatch (-got +want):\n%s", diff)
	}
}

func TestLoadFirstRunWritesDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, DefaultConfig()); diff != "" {
		t.Errorf("first-run config mismatch (-got +want):\n%s", diff)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("calendar_id: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}

func TestTokenNeverInJSON(t *testing.T) {
	t.Parallel()

	// The json tag on Token must stay "-" so status payloads can embed the
	// config without leaking credentials.
	cfg := Config{Token: "secret"}
	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "secret") {
		t.Errorf("token leaked into JSON: %s", out)
	}
}

func TestRemindersWireForm(t *testing.T) {
	t.Parallel()

	cfg := Config{DefaultReminders: []ReminderConfig{
		{Method: "popup", Minutes: 10},
		{Method: "email", Minutes: 1440},
	}}

	got, err := cfg.Reminders(context.Background())
	if err != nil {
		t.Fatalf("Reminders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d reminders, want 2", len(got))
	}
	if got[0].Method != "popup" || got[0].Minutes != 10 {
		t.Errorf("first reminder = %+v", got[0])
	}
	if got[1].Method != "email" || got[1].Minutes != 1440 {
		t.Errorf("second reminder = %+v", got[1])
	}
}

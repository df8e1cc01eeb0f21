package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.taskmate.app" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Sync.PollIntervalSec != 120 ||
		cfg.Sync.RefreshIntervalSec != 900 ||
		cfg.Sync.DeadlineLookaheadDays != 3 {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
}

func TestLoadConfigOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api:\n  base_url: https://staging.taskmate.app\nsync:\n  poll_interval_sec: 30\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://staging.taskmate.app" {
		t.Errorf("base url = %q, want override applied", cfg.API.BaseURL)
	}
	if cfg.Sync.PollIntervalSec != 30 {
		t.Errorf("poll interval = %d, want 30", cfg.Sync.PollIntervalSec)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Sync.RefreshIntervalSec != 900 {
		t.Errorf("refresh interval = %d, want default 900", cfg.Sync.RefreshIntervalSec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := &AppConfig{
		API:  APIConfig{BaseURL: "https://api.example.com", TimeoutSec: 10},
		Sync: SyncConfig{PollIntervalSec: 60, RefreshIntervalSec: 300, DeadlineLookaheadDays: 7},
		Storage: StorageConfig{
			DBPath: "/tmp/taskmate.db",
		},
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.API.BaseURL != want.API.BaseURL || got.API.TimeoutSec != want.API.TimeoutSec {
		t.Errorf("api = %+v, want %+v", got.API, want.API)
	}
	if got.Sync != want.Sync {
		t.Errorf("sync = %+v, want %+v", got.Sync, want.Sync)
	}
	if got.Storage.DBPath != want.Storage.DBPath {
		t.Errorf("db path = %q, want %q", got.Storage.DBPath, want.Storage.DBPath)
	}
}

package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Sync.Mode != "chapters" || cfg.Sync.Workers != 4 {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
	if cfg.WestManga.BaseURL == "" {
		t.Error("westmanga.base_url default missing")
	}
	if filepath.Base(cfg.Database.Path) != "data.db" {
		t.Errorf("database.path default = %q", cfg.Database.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KOMIKNESIA_SERVER_ADDR", ":9999")
	t.Setenv("KOMIKNESIA_WESTMANGA_BASE_URL", "http://mirror.local")
	t.Setenv("KOMIKNESIA_SYNC_MODE", "full")
	t.Setenv("KOMIKNESIA_DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.WestManga.BaseURL != "http://mirror.local" {
		t.Errorf("westmanga.base_url = %q", cfg.WestManga.BaseURL)
	}
	if cfg.Sync.Mode != "full" {
		t.Errorf("sync.mode = %q", cfg.Sync.Mode)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	t.Setenv("KOMIKNESIA_SYNC_MODE", "everything")
	if _, err := Load(); err == nil {
		t.Fatal("want validation error for unknown sync mode")
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"KOMIKNESIA_SERVER_ADDR":                   "server.addr",
		"KOMIKNESIA_WESTMANGA_BASE_URL":            "westmanga.base_url",
		"KOMIKNESIA_WESTMANGA_REQUESTS_PER_SECOND": "westmanga.requests_per_second",
		"KOMIKNESIA_LOGGING_LEVEL":                 "logging.level",
	}
	for in, want := range cases {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%q) = %q, want %q", in, got, want)
		}
	}
}

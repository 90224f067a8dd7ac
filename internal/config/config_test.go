package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("FUNCTIONS_BASE_URL", "https://functions.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if got := cfg.Realtime.Debounce(); got != 500*time.Millisecond {
		t.Errorf("Realtime.Debounce() = %v, want 500ms", got)
	}
	if got := cfg.Sweeper.StuckAfter(); got != 10*time.Minute {
		t.Errorf("Sweeper.StuckAfter() = %v, want 10m", got)
	}
	if got := cfg.Functions.HTTPTimeout(); got != 60*time.Second {
		t.Errorf("Functions.HTTPTimeout() = %v, want 60s", got)
	}
}

func TestLoadFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http:
  addr: ":9999"
database:
  url: "postgres://from-file"
functions:
  base_url: "https://functions.file"
  timeout_secs: 30
realtime:
  debounce_ms: 2000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("HTTP.Addr = %q, want :9999", cfg.HTTP.Addr)
	}
	if cfg.Database.URL != "postgres://from-env" {
		t.Errorf("Database.URL = %q, env should win over file", cfg.Database.URL)
	}
	if got := cfg.Functions.HTTPTimeout(); got != 30*time.Second {
		t.Errorf("Functions.HTTPTimeout() = %v, want 30s", got)
	}
	if got := cfg.Realtime.Debounce(); got != 2*time.Second {
		t.Errorf("Realtime.Debounce() = %v, want 2s", got)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FUNCTIONS_BASE_URL", "")
	t.Setenv("BUCKET_BASE_URL", "")
	t.Setenv("BUCKET_SIGNING_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when database url missing")
	}

	t.Setenv("DATABASE_URL", "postgres://test")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when functions base url missing")
	}

	t.Setenv("FUNCTIONS_BASE_URL", "https://functions.test")
	t.Setenv("BUCKET_BASE_URL", "https://bucket.test")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when bucket signing secret missing")
	}

	t.Setenv("BUCKET_SIGNING_SECRET", "s3cret")
	if _, err := Load(""); err != nil {
		t.Fatalf("Load with complete bucket config: %v", err)
	}
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

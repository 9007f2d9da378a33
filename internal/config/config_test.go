package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DefaultRuntime != "node20" || cfg.MaxSessions != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Runtimes) != 3 {
		t.Errorf("expected 3 runtimes, got %v", cfg.Runtimes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.yaml")
	data := `
addr: ":9090"
max_sessions: 4
request_timeout: 5s
runtimes:
  node22: node:22-alpine
default_runtime: node22
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.MaxSessions != 4 || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Runtimes["node22"] != "node:22-alpine" || cfg.DefaultRuntime != "node22" {
		t.Errorf("runtimes not applied: %+v", cfg.Runtimes)
	}
	if cfg.RequestsPerHour != 100 {
		t.Errorf("expected untouched default, got %d", cfg.RequestsPerHour)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INSPECTOR_ADDR", ":7070")
	t.Setenv("INSPECTOR_DEBUG", "true")
	t.Setenv("INSPECTOR_ENABLE_LAUNCHER", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":7070" || !cfg.Debug || cfg.EnableLauncher {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("INSPECTOR_REQUEST_TIMEOUT", "soon")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "INSPECTOR_REQUEST_TIMEOUT") {
		t.Errorf("expected env parse error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.MaxSessions = 0
	cfg.Burst = 0
	cfg.DefaultRuntime = "deno"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"max_sessions", "burst", "default_runtime"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	cfg.EnableLauncher = false
	cfg.MaxSessions = 1
	cfg.Burst = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected runtime check skipped without launcher, got %v", err)
	}
}

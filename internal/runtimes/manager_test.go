package runtimes

import (
	"testing"
)

// Creating pools only builds docker clients from the environment; no
// daemon is contacted until a container operation runs.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(map[string]string{
		"node18": "node:18-slim",
		"node20": "node:20-slim",
		"node22": "node:22-slim",
	}, "node20", t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRoute(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		requested string
		want      Runtime
	}{
		{"node18", RuntimeNode18},
		{"node22", RuntimeNode22},
		{"", RuntimeNode20},
		{"deno", RuntimeNode20},
	}

	for _, tt := range tests {
		if got := m.Route(tt.requested); got != tt.want {
			t.Errorf("Route(%q) = %s, want %s", tt.requested, got, tt.want)
		}
	}
}

func TestGetPool(t *testing.T) {
	m := newTestManager(t)

	pool, err := m.GetPool(RuntimeNode22)
	if err != nil {
		t.Fatalf("GetPool failed: %v", err)
	}
	if pool.Image() != "node:22-slim" || pool.Runtime() != "node22" {
		t.Errorf("unexpected pool %s/%s", pool.Runtime(), pool.Image())
	}

	if _, err := m.GetPool("bun"); err == nil {
		t.Error("expected error for unsupported runtime")
	}
}

func TestRuntimesSorted(t *testing.T) {
	m := newTestManager(t)

	got := m.Runtimes()
	want := []Runtime{RuntimeNode18, RuntimeNode20, RuntimeNode22}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestNewManagerRequiresDefault(t *testing.T) {
	if _, err := NewManager(map[string]string{"node18": "node:18-slim"}, "node20", t.TempDir()); err == nil {
		t.Error("expected error when the default runtime has no image")
	}
}

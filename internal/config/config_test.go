package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Tools.Cargo != "cargo" || cfg.Tools.Klee != "klee" || cfg.Tools.LLVMNm != "llvm-nm" {
		t.Errorf("tool defaults = %+v", cfg.Tools)
	}
	if cfg.Verify.Backend != "klee" {
		t.Errorf("default backend = %q, want klee", cfg.Verify.Backend)
	}
	if cfg.Verify.Jobs != 0 {
		t.Errorf("default jobs = %d, want 0 (available parallelism)", cfg.Verify.Jobs)
	}
	if cfg.History.DatabasePath == "" {
		t.Error("default history database path is empty")
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tools.Cargo != "cargo" {
		t.Errorf("cargo = %q, want default", cfg.Tools.Cargo)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[tools]
klee = "/opt/klee/bin/klee"

[verify]
backend = "proptest"
jobs = 8
backend_flags = ["--max-time=60s"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tools.Klee != "/opt/klee/bin/klee" {
		t.Errorf("klee = %q", cfg.Tools.Klee)
	}
	if cfg.Tools.Cargo != "cargo" {
		t.Errorf("unset cargo lost its default: %q", cfg.Tools.Cargo)
	}
	if cfg.Verify.Backend != "proptest" || cfg.Verify.Jobs != 8 {
		t.Errorf("verify = %+v", cfg.Verify)
	}
	if len(cfg.Verify.BackendFlags) != 1 || cfg.Verify.BackendFlags[0] != "--max-time=60s" {
		t.Errorf("backend flags = %v", cfg.Verify.BackendFlags)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tools\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a malformed config file")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		in   string
		want string
	}{
		{"~/x/y.db", filepath.Join(home, "x", "y.db")},
		{"/abs/path.db", "/abs/path.db"},
		{"rel/path.db", "rel/path.db"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

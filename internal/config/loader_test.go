package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != DefaultWorkerCount {
		t.Errorf("WorkerCount = %d, want %d", cfg.WorkerCount, DefaultWorkerCount)
	}
	if cfg.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want %d", cfg.MaxMessageSize, DefaultMaxMessageSize)
	}
	if cfg.GatewayEnabled() {
		t.Error("expected gateway disabled with no backends")
	}
	if cfg.APIKeyEnabled() {
		t.Error("expected api key disabled when unset")
	}
}

func TestParse_BackendDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
backends:
  - name: b1
    address: 127.0.0.1:9000
    method_prefix: call_tool
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := cfg.Backends[0]
	if b.MinConns != 1 || b.MaxConns != 8 {
		t.Errorf("unexpected conn defaults: min=%d max=%d", b.MinConns, b.MaxConns)
	}
	if b.ConnectTimeoutMs != 5000 || b.TimeoutMs != 30000 {
		t.Errorf("unexpected timeout defaults: %+v", b)
	}
	if !cfg.GatewayEnabled() {
		t.Error("expected gateway enabled with a backend configured")
	}
}

func TestParse_RejectsInvalidBackend(t *testing.T) {
	_, err := Parse([]byte(`
backends:
  - name: ""
    address: ""
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestParse_RejectsMinExceedingMax(t *testing.T) {
	_, err := Parse([]byte(`
backends:
  - name: b1
    address: 127.0.0.1:9000
    method_prefix: call_tool
    min_conns: 10
    max_conns: 2
`))
	if err == nil {
		t.Fatal("expected validation error for min_conns exceeding max_conns")
	}
}

func TestParse_RejectsRateLimitWithoutWindow(t *testing.T) {
	_, err := Parse([]byte("rate_limit_max: 10\n"))
	if err == nil {
		t.Fatal("expected validation error when rate_limit_max is set without a window")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("worker_count: 4\n"), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

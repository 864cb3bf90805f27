package main

import (
	"testing"
	"time"

	"github.com/zzenonn/fecvault/internal/config"
	"github.com/zzenonn/fecvault/internal/gc"
)

func TestFileIDForIsDeterministic(t *testing.T) {
	a := fileIDFor("/tmp/report.csv")
	b := fileIDFor("/tmp/report.csv")
	if a != b {
		t.Fatal("fileIDFor must be deterministic for the same path")
	}

	c := fileIDFor("/tmp/other.csv")
	if a == c {
		t.Fatal("fileIDFor should differ across distinct paths")
	}
}

func TestGCPolicyZeroRetentionKeepsEverything(t *testing.T) {
	cfg := config.Default()
	cfg.RetentionDays = 0
	if _, ok := gcPolicy(cfg).(gc.KeepAll); !ok {
		t.Fatalf("expected gc.KeepAll for retention_days = 0, got %T", gcPolicy(cfg))
	}
}

func TestGCPolicyPositiveRetentionKeepsRecentWindow(t *testing.T) {
	cfg := config.Default()
	cfg.RetentionDays = 14
	policy, ok := gcPolicy(cfg).(gc.KeepRecent)
	if !ok {
		t.Fatalf("expected gc.KeepRecent, got %T", gcPolicy(cfg))
	}
	if policy.Window != 14*24*time.Hour {
		t.Fatalf("Window = %s, want %s", policy.Window, 14*24*time.Hour)
	}
}

func TestBuildBackendUnknownKindErrors(t *testing.T) {
	cfg := config.Default()
	cfg.StorageBackend = config.StorageKind("not-a-backend")
	if _, err := buildBackend(nil, cfg); err == nil {
		t.Fatal("expected an error for an unknown storage backend")
	}
}

func TestBuildBackendLocal(t *testing.T) {
	cfg := config.Default()
	cfg.StorageRoot = t.TempDir()
	backend, err := buildBackend(nil, cfg)
	if err != nil {
		t.Fatalf("buildBackend failed: %v", err)
	}
	if backend == nil {
		t.Fatal("expected a non-nil backend for the local storage kind")
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"Warpgate/internal/ident"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.DataPath != "./data" || cfg.HTTPAddress != ":8080" || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	if cfg.Bootstrap || !cfg.Admin.IsZero() {
		t.Errorf("bootstrap and admin should be off by default: %+v", cfg)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "warpgate.yaml")
	admin := ident.Named("admin")

	yaml := "http: \":7000\"\n" +
		"log_level: debug\n" +
		"admin: \"" + admin.String() + "\"\n" +
		"snapshot:\n  export: /tmp/from-file.snap\n"

	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WARPGATE_LOG_LEVEL", "warn")

	cfg, err := loadConfig([]string{"--config", file, "--http", ":9999"})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.HTTPAddress != ":9999" {
		t.Errorf("flag should win over file: http = %s", cfg.HTTPAddress)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("env should win over file: log_level = %s", cfg.LogLevel)
	}

	if cfg.Admin != admin {
		t.Errorf("admin = %s, want %s", cfg.Admin, admin)
	}

	if cfg.SnapshotExport != "/tmp/from-file.snap" {
		t.Errorf("snapshot.export = %q", cfg.SnapshotExport)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	if _, err := loadConfig([]string{"--admin", "zz"}); err == nil {
		t.Error("expected error on invalid admin")
	}

	if _, err := loadConfig([]string{"--snapshot-export", "a", "--snapshot-import", "b"}); err == nil {
		t.Error("expected error when exporting and importing at once")
	}

	if _, err := loadConfig([]string{"--no-such-flag"}); err == nil {
		t.Error("expected error on unknown flag")
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	first, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	second, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if !first.Equal(second) {
		t.Error("reloaded key differs from generated key")
	}

	bad := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(bad, []byte("short"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	if _, err := loadOrGenerateKey(bad); err == nil {
		t.Error("expected error on truncated key")
	}
}

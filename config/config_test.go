package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.ClientName != "toolhost" {
		t.Errorf("expected default client name, got %q", cfg.ClientName)
	}
	if cfg.DefaultTimeoutSeconds != 30 {
		t.Errorf("expected default timeout 30, got %d", cfg.DefaultTimeoutSeconds)
	}
}

func TestLoadOverrides(t *testing.T) {
	content := `
servers_file = "/etc/toolhost/servers.json"
log_level = "debug"
client_name = "myhost"
default_timeout_seconds = 10

[http]
bearer_token = "s3cret"
`
	path := filepath.Join(t.TempDir(), "toolhost.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServersFile != "/etc/toolhost/servers.json" {
		t.Errorf("unexpected servers file: %q", cfg.ServersFile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.ClientName != "myhost" {
		t.Errorf("unexpected client name: %q", cfg.ClientName)
	}
	if cfg.DefaultTimeoutSeconds != 10 {
		t.Errorf("unexpected timeout: %d", cfg.DefaultTimeoutSeconds)
	}
	if cfg.HTTP.BearerToken != "s3cret" {
		t.Errorf("unexpected bearer token: %q", cfg.HTTP.BearerToken)
	}
	// Unset fields keep their defaults
	if cfg.ClientVersion != "1.0.0" {
		t.Errorf("expected default client version, got %q", cfg.ClientVersion)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

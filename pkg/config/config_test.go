package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadNameServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadNameServerConfig("")
	if err != nil {
		t.Fatalf("LoadNameServerConfig: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected default port 9000, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("expected default cache ttl 60s, got %v", cfg.CacheTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default logging level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadNameServerConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfigFile(t, tmpDir, `
port: 9500
snapshot_path: /var/lib/dfs/ns.dat
heartbeat_interval: 5s
probe_timeout: 1s
cache_ttl: 30s
cache_capacity: 512
max_acl_entries: 64
shutdown_timeout: 5s
logging:
  level: debug
`)

	cfg, err := LoadNameServerConfig(path)
	if err != nil {
		t.Fatalf("LoadNameServerConfig: %v", err)
	}
	if cfg.Port != 9500 {
		t.Errorf("expected port 9500, got %d", cfg.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Logging.Level)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.CacheTTL)
	}
}

func TestLoadNameServerConfig_MissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := LoadNameServerConfig(missing)
	if err != nil {
		t.Fatalf("expected no error for missing config file, got: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestLoadNameServerConfig_InvalidPortFailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfigFile(t, tmpDir, `
port: -1
snapshot_path: /var/lib/dfs/ns.dat
heartbeat_interval: 5s
probe_timeout: 1s
cache_ttl: 30s
cache_capacity: 512
max_acl_entries: 64
shutdown_timeout: 5s
`)

	if _, err := LoadNameServerConfig(path); err == nil {
		t.Fatal("expected validation error for negative port")
	}
}

func TestLoadStorageServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadStorageServerConfig("")
	if err != nil {
		t.Fatalf("LoadStorageServerConfig: %v", err)
	}
	if cfg.ControlPort != 9001 {
		t.Errorf("expected default control port 9001, got %d", cfg.ControlPort)
	}
	if cfg.ClientPort != 9002 {
		t.Errorf("expected default client port 9002, got %d", cfg.ClientPort)
	}
	if cfg.MaxLocksPerFile != 100 {
		t.Errorf("expected default max locks per file 100, got %d", cfg.MaxLocksPerFile)
	}
}

func TestLoadStorageServerConfig_EmptyStorageRootFailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfigFile(t, tmpDir, `
storage_root: ""
control_port: 9001
client_port: 9002
ns_address: 127.0.0.1:9000
checkpoint_root: /var/lib/dfs/checkpoints
max_locks_per_file: 100
replication_timeout: 3s
stream_word_delay: 100ms
shutdown_timeout: 5s
`)

	if _, err := LoadStorageServerConfig(path); err == nil {
		t.Fatal("expected validation error for empty storage_root")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out", "config.yaml")

	cfg := DefaultNameServerConfig()
	cfg.Port = 12345

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadNameServerConfig(path)
	if err != nil {
		t.Fatalf("LoadNameServerConfig: %v", err)
	}
	if loaded.Port != 12345 {
		t.Errorf("expected round-tripped port 12345, got %d", loaded.Port)
	}
}

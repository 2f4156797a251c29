package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/layoutsync/schema"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected defaults, got version %d", cfg.ConfigVersion)
	}
	if cfg.Sync.DeviceType != string(schema.DeviceLaptop) {
		t.Fatalf("expected laptop default, got %q", cfg.Sync.DeviceType)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
sync:
  base_url: https://config.example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 2
sync:
  device_type: laptop
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "sync.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadRejectsMalformedBaseURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 2
sync:
  base_url: config.example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "sync.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadRejectsUnknownDeviceType(t *testing.T) {
	path := writeConfig(t, `
config_version: 2
sync:
  base_url: https://config.example.com
  device_type: toaster
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "sync.device_type") {
		t.Fatalf("expected device_type error, got %v", err)
	}
}

func TestEngineConfigMapping(t *testing.T) {
	path := writeConfig(t, `
config_version: 2
sync:
  base_url: https://config.example.com
  device_type: bigscreen
  fallback_order: [laptop, bigscreen, mobile]
  pull_interval_seconds: 45
  flush_debounce_ms: 200
  verify_retries: 2
  allowed_copy_domains: [example.com]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	engineCfg := cfg.EngineConfig()
	if engineCfg.DeviceType != schema.DeviceBigscreen {
		t.Fatalf("expected bigscreen, got %q", engineCfg.DeviceType)
	}
	// the current device type is filtered from its own fallback chain
	for _, dt := range engineCfg.FallbackOrder {
		if dt == schema.DeviceBigscreen {
			t.Fatalf("expected current device filtered from fallback order")
		}
	}
	if engineCfg.PullInterval != 45*time.Second {
		t.Fatalf("expected 45s pull interval, got %v", engineCfg.PullInterval)
	}
	if engineCfg.FlushDebounce != 200*time.Millisecond {
		t.Fatalf("expected 200ms debounce, got %v", engineCfg.FlushDebounce)
	}
	if len(engineCfg.AllowedCopyDomains) != 1 || engineCfg.AllowedCopyDomains[0] != "example.com" {
		t.Fatalf("expected copy domains carried over, got %v", engineCfg.AllowedCopyDomains)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

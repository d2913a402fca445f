package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cacheflow/domain/config"
)

func TestLoader_LoadFile_YAML(t *testing.T) {
	content := `
name: test-cache
version: "1.0"
description: Test deployment
l1:
  capacity: 5000
  shards: 8
l2:
  enabled: true
  address: localhost:6379
  key_prefix: "cacheflow:"
ttl:
  short: 30s
  medium: 5m
  stale_window: 1m
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Name != "test-cache" {
		t.Errorf("Name = %s, want test-cache", cfg.Name)
	}
	if cfg.Version != "1.0" {
		t.Errorf("Version = %s, want 1.0", cfg.Version)
	}
	if cfg.L1.Capacity != 5000 {
		t.Errorf("L1.Capacity = %d, want 5000", cfg.L1.Capacity)
	}
	if cfg.TTL.Medium.Duration() != 5*time.Minute {
		t.Errorf("TTL.Medium = %v, want 5m", cfg.TTL.Medium.Duration())
	}
}

func TestLoader_LoadFile_JSON(t *testing.T) {
	content := `{
  "name": "test-cache",
  "version": "1.0",
  "l1": {
    "capacity": 500
  }
}`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Name != "test-cache" {
		t.Errorf("Name = %s, want test-cache", cfg.Name)
	}
	if cfg.L1.Capacity != 500 {
		t.Errorf("L1.Capacity = %d, want 500", cfg.L1.Capacity)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}

func TestLoader_LoadFile_UnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("name = 'x'"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	loader := NewLoader()
	_, err := loader.LoadFile(path)
	if err == nil {
		t.Error("LoadFile() expected error for unsupported format")
	}
}

func TestLoader_LoadString(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.LoadString(`{"name": "test-cache", "version": "1"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "test-cache" {
		t.Errorf("Name = %s, want test-cache", cfg.Name)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	os.Setenv("CACHE_NAME", "env-cache")
	defer os.Unsetenv("CACHE_NAME")

	loader := NewLoader()
	cfg, err := loader.LoadString(`{"name": "${CACHE_NAME}", "version": "1"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "env-cache" {
		t.Errorf("Name = %s, want env-cache", cfg.Name)
	}
}

func TestLoader_EnvExpansionWithDefault(t *testing.T) {
	os.Unsetenv("MISSING_CACHE_NAME")

	loader := NewLoader()
	cfg, err := loader.LoadString(`{"name": "${MISSING_CACHE_NAME:-fallback}", "version": "1"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("Name = %s, want fallback", cfg.Name)
	}
}

func TestLoader_EnvExpansionStrict(t *testing.T) {
	os.Unsetenv("MISSING_CACHE_NAME")

	loader := NewLoaderWithOptions(WithStrictEnv(true))
	_, err := loader.LoadString(`{"name": "${MISSING_CACHE_NAME}", "version": "1"}`, FormatJSON)
	if err == nil {
		t.Error("LoadString() expected error for missing env var in strict mode")
	}
}

func TestLoader_EnvExpansionDisabled(t *testing.T) {
	os.Setenv("CACHE_NAME", "env-cache")
	defer os.Unsetenv("CACHE_NAME")

	loader := NewLoaderWithOptions(WithEnvExpansion(false))
	cfg, err := loader.LoadString(`{"name": "${CACHE_NAME}", "version": "1"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "${CACHE_NAME}" {
		t.Errorf("Name = %s, want literal ${CACHE_NAME}", cfg.Name)
	}
}

func TestLoader_ValidationFailed(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadString(`{"version": "1"}`, FormatJSON)
	if err == nil {
		t.Error("LoadString() expected validation error for missing name")
	}
	if err != nil && !strings.Contains(err.Error(), "name") {
		t.Errorf("error = %v, want mention of name", err)
	}
}

func TestLoader_ValidationDisabled(t *testing.T) {
	loader := NewLoaderWithOptions(WithValidation(false))
	cfg, err := loader.LoadString(`{"version": "1"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "" {
		t.Errorf("Name = %s, want empty", cfg.Name)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadString("name: [broken", FormatYAML)
	if err == nil {
		t.Error("LoadString() expected error for invalid YAML")
	}
}

func TestLoader_InvalidJSON(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadString("{broken", FormatJSON)
	if err == nil {
		t.Error("LoadString() expected error for invalid JSON")
	}
}

func TestLoader_DefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
		t.Errorf("default config does not validate: %v", errs)
	}
}

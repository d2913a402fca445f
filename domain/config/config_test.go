package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_JSON_Roundtrip(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		wantJSON string
	}{
		{
			name:     "zero value",
			duration: Duration(0),
			wantJSON: `"0s"`,
		},
		{
			name:     "5 seconds",
			duration: Duration(5 * time.Second),
			wantJSON: `"5s"`,
		},
		{
			name:     "1 minute 30 seconds",
			duration: Duration(90 * time.Second),
			wantJSON: `"1m30s"`,
		},
		{
			name:     "milliseconds",
			duration: Duration(500 * time.Millisecond),
			wantJSON: `"500ms"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.duration)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.wantJSON {
				t.Errorf("Marshal() = %s, want %s", data, tt.wantJSON)
			}

			var parsed Duration
			if err := json.Unmarshal(data, &parsed); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if parsed != tt.duration {
				t.Errorf("round trip = %v, want %v", parsed, tt.duration)
			}
		})
	}
}

func TestDuration_JSON_Null(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if d != 0 {
		t.Errorf("Unmarshal(null) = %v, want 0", d)
	}
}

func TestDuration_YAML_Roundtrip(t *testing.T) {
	d := Duration(90 * time.Second)

	data, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var parsed Duration
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if parsed != d {
		t.Errorf("round trip = %v, want %v", parsed, d)
	}
}

func TestDuration_YAML_Invalid(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Error("Unmarshal() expected error for invalid duration")
	}
}

func TestEngineConfig_YAML(t *testing.T) {
	content := `
name: production
version: "1"
l1:
  capacity: 5000
  shards: 32
l2:
  enabled: true
  address: redis:6379
  key_prefix: "cacheflow:"
ttl:
  short: 30s
  medium: 5m
  long: 1h
  stale_window: 1m
compression:
  threshold_bytes: 2048
  min_savings_ratio: 0.25
prefetch:
  enabled: true
  window: 10s
  trigger_count: 3
  co_access:
    risk:
      - "risk:summary"
      - "dashboard:metrics"
fetch:
  timeout: 3s
`

	cfg := &EngineConfig{}
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.Name != "production" {
		t.Errorf("Name = %s, want production", cfg.Name)
	}
	if cfg.L1.Capacity != 5000 {
		t.Errorf("L1.Capacity = %d, want 5000", cfg.L1.Capacity)
	}
	if !cfg.L2.Enabled || cfg.L2.Address != "redis:6379" {
		t.Errorf("L2 = %+v, want enabled at redis:6379", cfg.L2)
	}
	if cfg.TTL.Medium.Duration() != 5*time.Minute {
		t.Errorf("TTL.Medium = %v, want 5m", cfg.TTL.Medium.Duration())
	}
	if cfg.Compression.MinSavingsRatio != 0.25 {
		t.Errorf("Compression.MinSavingsRatio = %v, want 0.25", cfg.Compression.MinSavingsRatio)
	}
	if got := cfg.Prefetch.CoAccess["risk"]; len(got) != 2 {
		t.Errorf("Prefetch.CoAccess[risk] = %v, want 2 targets", got)
	}
	if cfg.Fetch.Timeout.Duration() != 3*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 3s", cfg.Fetch.Timeout.Duration())
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.L1.Capacity == 0 {
		t.Error("Default() L1.Capacity is zero")
	}
	if cfg.TTL.Medium == 0 {
		t.Error("Default() TTL.Medium is zero")
	}
	if errs := NewValidator().Validate(cfg); errs.HasErrors() {
		t.Errorf("Default() does not validate: %v", errs)
	}
}

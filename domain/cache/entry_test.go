package cache

import (
	"testing"
	"time"
)

func TestEntry_Freshness(t *testing.T) {
	t.Parallel()

	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{
		Payload:      []byte(`{"n":1}`),
		WrittenAt:    written,
		TTLSeconds:   60,
		StaleSeconds: 30,
	}

	tests := []struct {
		name      string
		at        time.Time
		fresh     bool
		serveable bool
	}{
		{name: "just written", at: written, fresh: true, serveable: true},
		{name: "inside ttl", at: written.Add(59 * time.Second), fresh: true, serveable: true},
		{name: "at ttl boundary", at: written.Add(60 * time.Second), fresh: false, serveable: true},
		{name: "inside stale window", at: written.Add(89 * time.Second), fresh: false, serveable: true},
		{name: "at hard expiry", at: written.Add(90 * time.Second), fresh: false, serveable: false},
		{name: "long past expiry", at: written.Add(time.Hour), fresh: false, serveable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := entry.Fresh(tt.at); got != tt.fresh {
				t.Errorf("Fresh() = %v, want %v", got, tt.fresh)
			}
			if got := entry.Serveable(tt.at); got != tt.serveable {
				t.Errorf("Serveable() = %v, want %v", got, tt.serveable)
			}
			if got := entry.Expired(tt.at); got == tt.serveable {
				t.Errorf("Expired() = %v, want %v", got, !tt.serveable)
			}
		})
	}
}

func TestEntry_StoreTTL(t *testing.T) {
	t.Parallel()

	entry := &Entry{TTLSeconds: 300, StaleSeconds: 60}
	if got := entry.StoreTTL(); got != 6*time.Minute {
		t.Errorf("StoreTTL() = %v, want 6m", got)
	}
}

func TestEntry_Remaining(t *testing.T) {
	t.Parallel()

	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{WrittenAt: written, TTLSeconds: 100}

	if got := entry.Remaining(written.Add(40 * time.Second)); got != time.Minute {
		t.Errorf("Remaining() = %v, want 1m", got)
	}
}

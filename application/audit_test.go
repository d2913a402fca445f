package application

import (
	"fmt"
	"testing"
	"time"
)

func TestAuditLogAppendAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()
	log := NewAuditLog(8)

	rec := log.Append(AuditRecord{
		EntityType: "risk",
		EntityID:   "7",
		Scope:      "org:1",
		Tags:       []string{"org:1:risk:7", "org:1:dashboard"},
		KeyCount:   3,
	})

	if rec.ID == "" {
		t.Error("Append() did not assign an ID")
	}
	if rec.At.IsZero() {
		t.Error("Append() did not stamp a time")
	}
	if log.Len() != 1 {
		t.Errorf("Len() = %d, want 1", log.Len())
	}
}

func TestAuditLogRecentNewestFirst(t *testing.T) {
	t.Parallel()
	log := NewAuditLog(8)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		log.Append(AuditRecord{
			EntityType: "document",
			EntityID:   fmt.Sprintf("d%d", i),
			Scope:      "org:1",
			At:         base.Add(time.Duration(i) * time.Second),
		})
	}

	recent := log.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d records", len(recent))
	}
	if recent[0].EntityID != "d4" || recent[2].EntityID != "d2" {
		t.Errorf("Recent(3) order = [%s %s %s], want newest first",
			recent[0].EntityID, recent[1].EntityID, recent[2].EntityID)
	}
}

func TestAuditLogRingOverwritesOldest(t *testing.T) {
	t.Parallel()
	log := NewAuditLog(3)

	for i := range 5 {
		log.Append(AuditRecord{EntityType: "risk", EntityID: fmt.Sprintf("r%d", i), Scope: "org:1"})
	}

	if log.Len() != 3 {
		t.Errorf("Len() = %d, want capacity 3", log.Len())
	}
	all := log.Recent(10)
	if len(all) != 3 {
		t.Fatalf("Recent(10) returned %d records", len(all))
	}
	if all[0].EntityID != "r4" || all[2].EntityID != "r2" {
		t.Errorf("ring retained [%s %s %s], want the three newest",
			all[0].EntityID, all[1].EntityID, all[2].EntityID)
	}
}

func TestAuditLogRecentOnEmptyLog(t *testing.T) {
	t.Parallel()
	log := NewAuditLog(0)

	if got := log.Recent(5); len(got) != 0 {
		t.Errorf("Recent() on empty log = %v, want empty", got)
	}
}

package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditRecord captures one invalidation for operational forensics: who
// asked, which tags expanded, and how many keys were removed.
type AuditRecord struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Scope      string    `json:"scope"`
	Tags       []string  `json:"tags"`
	KeyCount   int       `json:"key_count"`
	At         time.Time `json:"at"`
}

// AuditLog is a fixed-capacity ring of the most recent invalidations.
type AuditLog struct {
	mu      sync.RWMutex
	records []AuditRecord
	next    int
	full    bool
}

// NewAuditLog creates a log retaining the last capacity records.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = 128
	}
	return &AuditLog{
		records: make([]AuditRecord, capacity),
	}
}

// Append records an invalidation, assigning it an ID and timestamp.
func (l *AuditLog) Append(record AuditRecord) AuditRecord {
	record.ID = uuid.NewString()
	if record.At.IsZero() {
		record.At = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[l.next] = record
	l.next++
	if l.next == len(l.records) {
		l.next = 0
		l.full = true
	}
	return record
}

// Recent returns up to n records, newest first.
func (l *AuditLog) Recent(n int) []AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.records)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]AuditRecord, 0, n)
	idx := l.next - 1
	for len(out) < n {
		if idx < 0 {
			idx = len(l.records) - 1
		}
		out = append(out, l.records[idx])
		idx--
	}
	return out
}

// Len returns the number of retained records.
func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.records)
	}
	return l.next
}

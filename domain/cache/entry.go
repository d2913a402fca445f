package cache

import "time"

// Entry is the stored unit: an encoded payload plus the small structured
// header that travels with it through every store.
//
// Freshness is evaluated against WrittenAt: an entry is fresh while its age
// is below TTLSeconds, serveable-but-stale for a further StaleSeconds, and
// hard-expired after that. A hard-expired entry is treated as absent
// regardless of physical presence in a store.
type Entry struct {
	Payload      []byte    `json:"payload"`
	Compressed   bool      `json:"compressed"`
	WrittenAt    time.Time `json:"written_at"`
	TTLSeconds   int       `json:"ttl_seconds"`
	StaleSeconds int       `json:"stale_seconds,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

// Fresh reports whether the entry is within its freshness window.
func (e *Entry) Fresh(now time.Time) bool {
	return e.Age(now) < time.Duration(e.TTLSeconds)*time.Second
}

// Serveable reports whether the entry may still be returned to callers,
// either fresh or stale-while-revalidate.
func (e *Entry) Serveable(now time.Time) bool {
	window := time.Duration(e.TTLSeconds+e.StaleSeconds) * time.Second
	return e.Age(now) < window
}

// Expired reports whether the entry is past its hard expiry and must be
// treated as absent.
func (e *Entry) Expired(now time.Time) bool {
	return !e.Serveable(now)
}

// StoreTTL returns the physical TTL handed to backing stores: the freshness
// window plus the stale-while-revalidate allowance.
func (e *Entry) StoreTTL() time.Duration {
	return time.Duration(e.TTLSeconds+e.StaleSeconds) * time.Second
}

// Remaining returns the time until hard expiry, used when promoting an L2
// hit into L1 so both layers expire together.
func (e *Entry) Remaining(now time.Time) time.Duration {
	return e.StoreTTL() - e.Age(now)
}

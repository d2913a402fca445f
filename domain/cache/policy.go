package cache

import (
	"fmt"
	"time"
)

// Priority governs L1 residency and prefetch eligibility.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the defined levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Policy is the caller-supplied configuration for a single read or write:
// how long the entry is fresh, how long past freshness it may be served
// while a background refresh runs, which tags it registers under, and its
// priority.
type Policy struct {
	TTLSeconds                  int
	StaleWhileRevalidateSeconds int
	Tags                        []string
	Priority                    Priority
}

// DefaultPolicy returns a medium-lived normal-priority policy.
func DefaultPolicy() Policy {
	return Policy{
		TTLSeconds:                  300,
		StaleWhileRevalidateSeconds: 60,
		Priority:                    PriorityNormal,
	}
}

// Category classifies a namespace by data volatility: volatile lists,
// per-record views, or static reference data.
type Category string

const (
	CategoryShort  Category = "short"
	CategoryMedium Category = "medium"
	CategoryLong   Category = "long"
)

// Valid reports whether the category is one of the defined levels.
func (c Category) Valid() bool {
	switch c {
	case CategoryShort, CategoryMedium, CategoryLong:
		return true
	}
	return false
}

// PolicySet supplies the default policy for reads and writes that pass a
// zero TTL, keyed by the namespace's configured category. Namespaces
// without a category get the medium per-record default.
type PolicySet struct {
	Short      Policy
	Medium     Policy
	Long       Policy
	Categories map[string]Category
}

// NewPolicySet builds a policy set from per-category freshness windows and
// a shared stale allowance. Zero durations fall back to the package
// defaults.
func NewPolicySet(short, medium, long, stale time.Duration, categories map[string]Category) *PolicySet {
	if short <= 0 {
		short = 30 * time.Second
	}
	if medium <= 0 {
		medium = 5 * time.Minute
	}
	if long <= 0 {
		long = time.Hour
	}
	if stale <= 0 {
		stale = time.Minute
	}
	mk := func(ttl time.Duration) Policy {
		return Policy{
			TTLSeconds:                  int(ttl.Seconds()),
			StaleWhileRevalidateSeconds: int(stale.Seconds()),
			Priority:                    PriorityNormal,
		}
	}
	return &PolicySet{
		Short:      mk(short),
		Medium:     mk(medium),
		Long:       mk(long),
		Categories: categories,
	}
}

// For returns the default policy for a namespace.
func (s *PolicySet) For(namespace string) Policy {
	switch s.Categories[namespace] {
	case CategoryShort:
		return s.Short
	case CategoryLong:
		return s.Long
	default:
		return s.Medium
	}
}

// Validate checks the policy's invariants.
func (p Policy) Validate() error {
	if p.TTLSeconds <= 0 {
		return fmt.Errorf("%w: ttl must be positive", ErrInvalidPolicy)
	}
	if p.StaleWhileRevalidateSeconds < 0 {
		return fmt.Errorf("%w: stale window must not be negative", ErrInvalidPolicy)
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidPolicy, p.Priority)
	}
	return nil
}

// TTL returns the freshness window as a duration.
func (p Policy) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

// StaleWindow returns the stale-while-revalidate allowance as a duration.
func (p Policy) StaleWindow() time.Duration {
	return time.Duration(p.StaleWhileRevalidateSeconds) * time.Second
}

// WithTags returns a copy of the policy with the given tags appended.
func (p Policy) WithTags(tags ...string) Policy {
	p.Tags = append(append([]string(nil), p.Tags...), tags...)
	return p
}

package logging

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for cache engine logging.

// Key adds a cache key field.
func Key(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", key)
	}
}

// Tenant adds a tenant scope field.
func Tenant(scope string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tenant", scope)
	}
}

// Namespace adds a resource namespace field.
func Namespace(ns string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("namespace", ns)
	}
}

// Layer adds a cache layer field (l1, l2, origin).
func Layer(layer string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("layer", layer)
	}
}

// Tags adds a tag list field.
func Tags(tags []string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tags", strings.Join(tags, ","))
	}
}

// EntityType adds an entity type field for invalidation logging.
func EntityType(entity string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("entity_type", entity)
	}
}

// EntityID adds an entity identifier field.
func EntityID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("entity_id", id)
	}
}

// KeyCount adds a count of affected keys.
func KeyCount(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("key_count", count)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// DurationNs adds a duration field in nanoseconds.
func DurationNs(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ns", d.Nanoseconds())
	}
}

// Compressed adds a compression flag field.
func Compressed(compressed bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("compressed", compressed)
	}
}

// Stale adds a staleness flag field.
func Stale(stale bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("stale", stale)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an integer field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

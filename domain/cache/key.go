package cache

import (
	"fmt"
	"strings"
)

// Scope identifies the tenant a key belongs to, e.g. {Kind: "org", ID: "42"}.
// Every key carries its scope as the leading segments, which makes
// cross-tenant key collisions structurally impossible.
type Scope struct {
	Kind string
	ID   string
}

// NewScope creates a tenant scope.
func NewScope(kind, id string) Scope {
	return Scope{Kind: kind, ID: id}
}

// String renders the scope as "kind:id", e.g. "org:42".
func (s Scope) String() string {
	return s.Kind + ":" + s.ID
}

// ParseScope parses a rendered scope of the form "kind:id".
func ParseScope(s string) (Scope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Scope{}, fmt.Errorf("%w: expected kind:id, got %q", ErrInvalidKey, s)
	}
	return Scope{Kind: parts[0], ID: parts[1]}, nil
}

// IsZero reports whether the scope is unset.
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == ""
}

// Validate checks that both scope segments are present and colon-free.
func (s Scope) Validate() error {
	if s.Kind == "" || s.ID == "" {
		return fmt.Errorf("%w: scope must have kind and id", ErrInvalidKey)
	}
	if strings.Contains(s.Kind, ":") || strings.Contains(s.ID, ":") {
		return fmt.Errorf("%w: scope segments must not contain ':'", ErrInvalidKey)
	}
	return nil
}

// Key is a structured cache key: tenant scope, resource namespace, and
// identifier, rendered as "org:42:risk:7". The stores treat keys as opaque
// strings; only the orchestrator and tag index rely on the structure.
type Key struct {
	Scope     Scope
	Namespace string
	ID        string
}

// NewKey builds a key from its parts.
func NewKey(scope Scope, namespace, id string) Key {
	return Key{Scope: scope, Namespace: namespace, ID: id}
}

// ParseKey parses a rendered key of the form "kind:tenant:namespace:id".
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("%w: expected kind:tenant:namespace:id, got %q", ErrInvalidKey, s)
	}
	for _, p := range parts {
		if p == "" {
			return Key{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidKey, s)
		}
	}
	return Key{
		Scope:     Scope{Kind: parts[0], ID: parts[1]},
		Namespace: parts[2],
		ID:        parts[3],
	}, nil
}

// String renders the key as "kind:tenant:namespace:id".
func (k Key) String() string {
	return k.Scope.String() + ":" + k.Namespace + ":" + k.ID
}

// NamespacePrefix returns the scan prefix covering all keys in the key's
// namespace within its tenant scope, e.g. "org:42:risk:".
func (k Key) NamespacePrefix() string {
	return k.Scope.String() + ":" + k.Namespace + ":"
}

// Validate checks that every segment is present and well-formed.
func (k Key) Validate() error {
	if err := k.Scope.Validate(); err != nil {
		return err
	}
	if k.Namespace == "" || k.ID == "" {
		return fmt.Errorf("%w: namespace and id are required", ErrInvalidKey)
	}
	if strings.Contains(k.Namespace, ":") {
		return fmt.Errorf("%w: namespace must not contain ':'", ErrInvalidKey)
	}
	return nil
}

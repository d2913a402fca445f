// Package tagindex provides the tag.Index implementations: an in-process
// map for single-instance deployments and a Redis set-based index shared
// across instances.
package tagindex

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/cacheflow/domain/tag"
)

// Memory is an in-process implementation of tag.Index.
type Memory struct {
	mu   sync.RWMutex
	tags map[string]map[string]struct{} // tag -> set of keys
	keys map[string]map[string]struct{} // key -> set of tags, for O(1) prune
}

// NewMemory creates an empty in-memory tag index.
func NewMemory() *Memory {
	return &Memory{
		tags: make(map[string]map[string]struct{}),
		keys: make(map[string]map[string]struct{}),
	}
}

// Register appends the key to each tag's set. Idempotent.
func (m *Memory) Register(ctx context.Context, key string, tags []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tags {
		set, ok := m.tags[t]
		if !ok {
			set = make(map[string]struct{})
			m.tags[t] = set
		}
		set[key] = struct{}{}

		back, ok := m.keys[key]
		if !ok {
			back = make(map[string]struct{})
			m.keys[key] = back
		}
		back[t] = struct{}{}
	}
	return nil
}

// KeysFor returns the union of keys across the given tags.
func (m *Memory) KeysFor(ctx context.Context, tags []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	union := make(map[string]struct{})
	for _, t := range tags {
		for key := range m.tags[t] {
			union[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for key := range union {
		out = append(out, key)
	}
	return out, nil
}

// Prune removes a key from every tag set it appears in.
func (m *Memory) Prune(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for t := range m.keys[key] {
		delete(m.tags[t], key)
		if len(m.tags[t]) == 0 {
			delete(m.tags, t)
		}
	}
	delete(m.keys, key)
	return nil
}

// DropTags removes the given tags and their key sets.
func (m *Memory) DropTags(ctx context.Context, tags []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tags {
		for key := range m.tags[t] {
			delete(m.keys[key], t)
			if len(m.keys[key]) == 0 {
				delete(m.keys, key)
			}
		}
		delete(m.tags, t)
	}
	return nil
}

// Len returns the number of tags currently tracked.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}

var _ tag.Index = (*Memory)(nil)

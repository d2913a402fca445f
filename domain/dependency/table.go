// Package dependency holds the static table mapping an entity type to the
// aggregate tags derived from it. Invalidating one entity expands through
// this table into the full set of tags whose cached views may embed it.
//
// The table is deliberately coarse: over-invalidating an aggregate view
// costs a cache miss, while under-invalidating serves corrupted data. Every
// registered entity type has a closure test, so adding an aggregate view
// without its tag registration fails in review rather than in production.
package dependency

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// EntityType names a domain entity whose mutation triggers invalidation.
type EntityType string

// Entity types of the surrounding application.
const (
	EntityRisk     EntityType = "risk"
	EntityDocument EntityType = "document"
	EntityReport   EntityType = "report"
	EntityChat     EntityType = "chat"
	EntityUser     EntityType = "user"
)

// Table maps entity types to the aggregate tag suffixes derived from them.
// Suffixes are tenant-relative; Closure scopes them to a tenant.
type Table struct {
	aggregates map[EntityType][]string
}

// New creates an empty table.
func New() *Table {
	return &Table{aggregates: make(map[EntityType][]string)}
}

// Default returns the table for the surrounding application's views.
func Default() *Table {
	t := New()
	t.Register(EntityRisk, "dashboard", "dashboard:metrics", "risk:summary")
	t.Register(EntityDocument, "dashboard", "document:recent")
	t.Register(EntityReport, "dashboard", "report:index")
	t.Register(EntityChat, "chat:recent")
	t.Register(EntityUser, "dashboard", "user:directory")
	return t
}

// Register records that views tagged with the given suffixes derive from
// the entity type. Calling it again for the same type appends.
func (t *Table) Register(entity EntityType, aggregateSuffixes ...string) {
	t.aggregates[entity] = append(t.aggregates[entity], aggregateSuffixes...)
}

// Known reports whether the entity type has a registration.
func (t *Table) Known(entity EntityType) bool {
	_, ok := t.aggregates[entity]
	return ok
}

// EntityTypes returns all registered entity types, sorted.
func (t *Table) EntityTypes() []EntityType {
	out := make([]EntityType, 0, len(t.aggregates))
	for e := range t.aggregates {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Closure expands a single entity change into every affected tag within the
// tenant scope: the entity's own tag, its list tag, and each registered
// aggregate tag.
func (t *Table) Closure(scope cache.Scope, entity EntityType, id string) ([]string, error) {
	if !t.Known(entity) {
		return nil, fmt.Errorf("unregistered entity type %q", entity)
	}

	prefix := scope.String() + ":"
	tags := []string{
		prefix + string(entity) + ":" + id, // the entity itself
		prefix + string(entity),            // list views over the entity type
	}
	for _, suffix := range t.aggregates[entity] {
		tags = append(tags, prefix+suffix)
	}
	return tags, nil
}

// OwnTag returns the tag identifying a single entity within a tenant,
// the tag every cached view of that entity registers under.
func OwnTag(scope cache.Scope, entity EntityType, id string) string {
	return scope.String() + ":" + string(entity) + ":" + id
}

// ListTag returns the tag covering list views over an entity type.
func ListTag(scope cache.Scope, entity EntityType) string {
	return scope.String() + ":" + string(entity)
}

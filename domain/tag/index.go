// Package tag defines the tag index contract: the mapping from logical
// tags to the cache keys written under them, which makes bulk invalidation
// O(tag-set-size) instead of a full key scan.
package tag

import "context"

// Index maintains tag -> key-set associations.
//
// Ordering rule: Register is called only after the entry physically exists
// in at least one store. The reverse ordering would let a concurrent
// invalidation miss a key that is about to be written. Index entries may
// lag deletions; a stale reference is pruned on discovery and can only
// cause over-invalidation, never under-invalidation.
type Index interface {
	// Register appends the key to each tag's set. Idempotent.
	Register(ctx context.Context, key string, tags []string) error

	// KeysFor returns the union of keys across the given tags.
	KeysFor(ctx context.Context, tags []string) ([]string, error)

	// Prune removes a key from all tag sets. Called when a get discovers a
	// key present in the index but absent from every store.
	Prune(ctx context.Context, key string) error

	// DropTags removes the given tags and their key sets entirely, after
	// the keys themselves have been deleted.
	DropTags(ctx context.Context, tags []string) error
}

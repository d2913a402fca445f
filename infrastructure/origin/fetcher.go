package origin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// Querier is the subset of pgxpool.Pool the fetcher needs. Satisfied by
// *pgxpool.Pool and by test fakes.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Fetcher builds cache fetch functions from per-namespace SQL queries.
// Each query must return a single JSON column and take the tenant
// identifier as $1 and the entity identifier as $2.
type Fetcher struct {
	db      Querier
	queries map[string]string
}

// NewFetcher creates a fetcher over the given connection.
func NewFetcher(db Querier) *Fetcher {
	return &Fetcher{
		db:      db,
		queries: make(map[string]string),
	}
}

// Register binds a namespace to its query. Replaces any previous binding.
func (f *Fetcher) Register(namespace, query string) {
	f.queries[namespace] = query
}

// Namespaces returns the registered namespaces.
func (f *Fetcher) Namespaces() []string {
	out := make([]string, 0, len(f.queries))
	for ns := range f.queries {
		out = append(out, ns)
	}
	return out
}

// FetchFor returns a fetch function for the given key, or an error when
// the key's namespace has no registered query.
func (f *Fetcher) FetchFor(key string) (cache.FetchFunc, error) {
	parsed, err := cache.ParseKey(key)
	if err != nil {
		return nil, err
	}

	query, ok := f.queries[parsed.Namespace]
	if !ok {
		return nil, fmt.Errorf("%w: no query registered for namespace %q", cache.ErrFetchFailed, parsed.Namespace)
	}

	return func(ctx context.Context) (any, error) {
		var payload json.RawMessage
		err := f.db.QueryRow(ctx, query, parsed.Scope.ID, parsed.ID).Scan(&payload)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s not found", cache.ErrFetchFailed, key)
			}
			return nil, errors.Join(cache.ErrFetchFailed, fmt.Errorf("query %s: %w", parsed.Namespace, err))
		}
		return payload, nil
	}, nil
}

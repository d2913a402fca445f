package origin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("expected one destination")
	}
	raw, ok := dest[0].(*json.RawMessage)
	if !ok {
		return errors.New("expected *json.RawMessage destination")
	}
	*raw = r.payload
	return nil
}

type fakeQuerier struct {
	lastSQL  string
	lastArgs []any
	row      fakeRow
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.lastSQL = sql
	q.lastArgs = args
	return q.row
}

func TestFetcherFetchFor(t *testing.T) {
	t.Parallel()

	db := &fakeQuerier{row: fakeRow{payload: []byte(`{"id":7,"name":"supply chain"}`)}}
	fetcher := NewFetcher(db)
	fetcher.Register("risk", "SELECT row_to_json(r) FROM risks r WHERE org_id = $1 AND id = $2")

	fetch, err := fetcher.FetchFor("org:42:risk:7")
	if err != nil {
		t.Fatalf("FetchFor() error = %v", err)
	}

	value, err := fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	raw, ok := value.(json.RawMessage)
	if !ok {
		t.Fatalf("fetch returned %T, want json.RawMessage", value)
	}
	if string(raw) != `{"id":7,"name":"supply chain"}` {
		t.Errorf("fetch = %s", raw)
	}

	if len(db.lastArgs) != 2 || db.lastArgs[0] != "42" || db.lastArgs[1] != "7" {
		t.Errorf("query args = %v, want [42 7]", db.lastArgs)
	}
}

func TestFetcherUnknownNamespace(t *testing.T) {
	t.Parallel()

	fetcher := NewFetcher(&fakeQuerier{})

	_, err := fetcher.FetchFor("org:42:unknown:7")
	if !errors.Is(err, cache.ErrFetchFailed) {
		t.Errorf("FetchFor() error = %v, want ErrFetchFailed", err)
	}
}

func TestFetcherInvalidKey(t *testing.T) {
	t.Parallel()

	fetcher := NewFetcher(&fakeQuerier{})

	if _, err := fetcher.FetchFor("garbage"); err == nil {
		t.Error("FetchFor() expected error for malformed key")
	}
}

func TestFetcherNoRows(t *testing.T) {
	t.Parallel()

	db := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	fetcher := NewFetcher(db)
	fetcher.Register("risk", "SELECT row_to_json(r) FROM risks r WHERE org_id = $1 AND id = $2")

	fetch, err := fetcher.FetchFor("org:42:risk:404")
	if err != nil {
		t.Fatalf("FetchFor() error = %v", err)
	}

	_, err = fetch(context.Background())
	if !errors.Is(err, cache.ErrFetchFailed) {
		t.Errorf("fetch error = %v, want ErrFetchFailed", err)
	}
}

func TestFetcherQueryError(t *testing.T) {
	t.Parallel()

	db := &fakeQuerier{row: fakeRow{err: errors.New("connection reset")}}
	fetcher := NewFetcher(db)
	fetcher.Register("risk", "SELECT row_to_json(r) FROM risks r WHERE org_id = $1 AND id = $2")

	fetch, _ := fetcher.FetchFor("org:42:risk:7")
	_, err := fetch(context.Background())
	if !errors.Is(err, cache.ErrFetchFailed) {
		t.Errorf("fetch error = %v, want ErrFetchFailed", err)
	}
}

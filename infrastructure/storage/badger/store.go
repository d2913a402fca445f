package badger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/cacheflow/domain/cache"

	stderrors "errors"
)

// Store is a BadgerDB-backed implementation of cache.Store: an embedded,
// durable substrate for deployments that want cache warmth to survive a
// process restart without a networked tier.
type Store struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
}

// NewStore opens a BadgerDB store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}
	if cfg.GCInterval > 0 {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// NewStoreFromDB creates a store from an existing BadgerDB database.
func NewStoreFromDB(db *badger.DB, keyPrefix string) *Store {
	return &Store{db: db, keyPrefix: keyPrefix, gcStop: make(chan struct{})}
}

func (s *Store) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					if err := s.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

func (s *Store) prefixKey(key string) []byte {
	return []byte(s.keyPrefix + key)
}

// Get retrieves a value. Badger expires entries natively via WithTTL.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.prefixKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.prefixKey(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.prefixKey(key))
	})
}

// ScanKeys iterates keys matching a prefix pattern without prefetching
// values.
func (s *Store) ScanKeys(ctx context.Context, pattern string, fn func(key string) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix, wildcard := strings.CutSuffix(pattern, "*")
	scanPrefix := []byte(s.keyPrefix + prefix)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = scanPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())[len(s.keyPrefix):]
			if !wildcard && key != pattern {
				continue
			}
			if !fn(key) {
				return nil
			}
		}
		return nil
	})
}

// GetMany retrieves each present key within one read transaction.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(s.prefixKey(key))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMany removes all given keys in one write transaction.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(s.prefixKey(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	close(s.gcStop)
	s.gcWg.Wait()
	return s.db.Close()
}

// DB returns the underlying BadgerDB database.
func (s *Store) DB() *badger.DB {
	return s.db
}

var (
	_ cache.Store      = (*Store)(nil)
	_ cache.BatchStore = (*Store)(nil)
)

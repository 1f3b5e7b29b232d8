package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// CachedStore wraps a backend with an LRU read cache. All writes in
// this process go through the same wrapper, which keeps the cache
// coherent with the single-writer discipline upstream.
type CachedStore struct {
	inner Store
	cache *lru.Cache
}

func WithCache(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if doc, ok := s.cache.Get(key); ok {
		return doc.([]byte), nil
	}

	doc, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		s.cache.Add(key, doc)
	}
	return doc, nil
}

func (s *CachedStore) Save(ctx context.Context, key string, doc []byte, changeNote string) error {
	if err := s.inner.Save(ctx, key, doc, changeNote); err != nil {
		// The backend may or may not have applied the write; drop the
		// entry so the next read goes to the source of truth.
		s.cache.Remove(key)
		return err
	}
	s.cache.Add(key, doc)
	return nil
}

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	docs    map[string][]byte
	gets    int
	saves   int
	saveErr error
}

func newCountingStore() *countingStore {
	return &countingStore{docs: make(map[string][]byte)}
}

func (s *countingStore) Get(_ context.Context, key string) ([]byte, error) {
	s.gets++
	return s.docs[key], nil
}

func (s *countingStore) Save(_ context.Context, key string, doc []byte, _ string) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.docs[key] = doc
	return nil
}

func TestCachedStore_GetServesFromCache(t *testing.T) {
	inner := newCountingStore()
	inner.docs["k"] = []byte(`{"giveaways":[]}`)

	cached, err := WithCache(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := cached.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, inner.docs["k"], doc)

	_, err = cached.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)
}

func TestCachedStore_AbsentKeyNotCached(t *testing.T) {
	inner := newCountingStore()
	cached, err := WithCache(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := cached.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Absence must not stick; the key may appear later.
	_, err = cached.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedStore_SavePopulatesCache(t *testing.T) {
	inner := newCountingStore()
	cached, err := WithCache(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cached.Save(ctx, "k", []byte(`{"history":[]}`), "note"))

	doc, err := cached.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"history":[]}`), doc)
	assert.Zero(t, inner.gets)
	assert.Equal(t, 1, inner.saves)
}

func TestCachedStore_FailedSaveInvalidatesEntry(t *testing.T) {
	inner := newCountingStore()
	inner.docs["k"] = []byte(`v1`)

	cached, err := WithCache(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Get(ctx, "k")
	require.NoError(t, err)

	inner.saveErr = errors.New("store down")
	err = cached.Save(ctx, "k", []byte(`v2`), "note")
	require.Error(t, err)

	// The next read must hit the backend, not a stale cache entry.
	inner.saveErr = nil
	doc, err := cached.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`v1`), doc)
	assert.Equal(t, 2, inner.gets)
}

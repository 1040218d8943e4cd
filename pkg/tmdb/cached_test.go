package tmdb

import (
	"context"
	"testing"
	"time"

	"watchlist/pkg/logger"
	"watchlist/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls  int
	result *models.MetadataResult
	err    error
}

func (l *countingLookup) SearchByTitle(_ context.Context, _ string) (*models.MetadataResult, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	cp := *l.result
	return &cp, nil
}

type mapCache map[string]models.MetadataResult

func (m mapCache) Get(_ context.Context, key string) (*models.MetadataResult, bool) {
	r, ok := m[key]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (m mapCache) Set(_ context.Context, key string, r *models.MetadataResult, _ time.Duration) {
	m[key] = *r
}

func TestCachedClient_ServesRepeatsFromCache(t *testing.T) {
	next := &countingLookup{result: &models.MetadataResult{Title: "Inception", ExternalID: "27205"}}
	cache := mapCache{}
	client := NewCachedClient(next, cache, time.Minute, logger.Discard())

	first, err := client.SearchByTitle(context.Background(), "Inception")
	require.NoError(t, err)
	second, err := client.SearchByTitle(context.Background(), "  inception ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Contains(t, cache, "inception")
}

func TestCachedClient_DoesNotCacheFailures(t *testing.T) {
	next := &countingLookup{err: ErrNotFound}
	cache := mapCache{}
	client := NewCachedClient(next, cache, time.Minute, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := client.SearchByTitle(context.Background(), "zzzz")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, cache)
}

func TestNewCachedClient_DisabledReturnsNext(t *testing.T) {
	next := &countingLookup{}
	assert.Same(t, Lookup(next), NewCachedClient(next, mapCache{}, 0, logger.Discard()))
	assert.Same(t, Lookup(next), NewCachedClient(next, nil, time.Minute, logger.Discard()))
}

func TestNewCachedClient_NilLogger(t *testing.T) {
	next := &countingLookup{result: &models.MetadataResult{Title: "Heat", ExternalID: "949"}}
	client := NewCachedClient(next, mapCache{}, time.Minute, nil)

	assert.NotPanics(t, func() {
		_, err := client.SearchByTitle(context.Background(), "Heat")
		require.NoError(t, err)
		_, err = client.SearchByTitle(context.Background(), "Heat")
		require.NoError(t, err)
	})
	assert.Equal(t, 1, next.calls)
}

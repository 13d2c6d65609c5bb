package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string][]string
	gets    int
	failGet bool
}

func (m *memoryCache) Get(_ context.Context, key string) ([]string, bool, error) {
	m.gets++
	if m.failGet {
		return nil, false, errors.New("connection refused")
	}
	route, ok := m.entries[key]
	return route, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, route []string) error {
	m.entries[key] = route
	return nil
}

func TestCacheKey(t *testing.T) {
	cfg := DefaultConfig()
	key := CacheKey("abc", []string{"A", "B"}, cfg)
	assert.Equal(t, key, CacheKey("abc", []string{"A", "B"}, cfg))
	assert.NotEqual(t, key, CacheKey("abd", []string{"A", "B"}, cfg))
	assert.NotEqual(t, key, CacheKey("abc", []string{"AB"}, cfg))
	assert.Contains(t, key, "suggestion:")
}

func TestService(t *testing.T) {
	ctx := context.Background()
	g := network([]string{"A", "B", "C", "D"},
		seg{"A", "B", 1, 100}, seg{"B", "C", 1, 100}, seg{"C", "D", 1, 100})
	net := &Network{Graph: g, Fingerprint: "v1"}

	t.Run("caches successful suggestions", func(t *testing.T) {
		cache := &memoryCache{entries: map[string][]string{}}
		svc := NewService(NewRouter(nil), cache, nil)

		route, err := svc.PathSuggestion(ctx, net, []string{"A", "D"}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "D"}, route)
		assert.Len(t, cache.entries, 1)

		cache.entries[CacheKey("v1", []string{"A", "D"}, DefaultConfig())] = []string{"cached"}
		route, err = svc.PathSuggestion(ctx, net, []string{"A", "D"}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, route)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		cache := &memoryCache{entries: map[string][]string{}}
		svc := NewService(NewRouter(nil), cache, nil)

		_, err := svc.PathSuggestion(ctx, net, []string{"A", "Z"}, DefaultConfig())
		assert.Error(t, err)
		assert.Empty(t, cache.entries)
	})

	t.Run("cache errors fall back to computing", func(t *testing.T) {
		cache := &memoryCache{entries: map[string][]string{}, failGet: true}
		svc := NewService(NewRouter(nil), cache, nil)

		route, err := svc.PathSuggestion(ctx, net, []string{"A", "C"}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, route)
	})

	t.Run("without cache", func(t *testing.T) {
		svc := NewService(NewRouter(nil), nil, nil)
		route, err := svc.PathSuggestion(ctx, net, []string{"A", "D"}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "D"}, route)
	})
}

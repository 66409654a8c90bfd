package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	results := []Result{
		{Title: "Hit", URL: "https://x.test", Content: "c", Score: 0.9, Domain: "x.test"},
	}
	require.NoError(t, cache.Set("some query", results))

	got, ok := cache.Get("some query")
	require.True(t, ok)
	assert.Equal(t, results, got)

	_, ok = cache.Get("different query")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache, err := OpenCache(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set("q", []Result{{Title: "t"}}))
	time.Sleep(10 * time.Millisecond)

	_, ok := cache.Get("q")
	assert.False(t, ok, "expired entries are misses")

	require.NoError(t, cache.ClearExpired())
}

func TestCacheOverwrite(t *testing.T) {
	cache, err := OpenCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set("q", []Result{{Title: "old"}}))
	require.NoError(t, cache.Set("q", []Result{{Title: "new"}}))

	got, ok := cache.Get("q")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Title)
}

func TestCacheDefaultTTL(t *testing.T) {
	cache, err := OpenCache(t.TempDir(), 0)
	require.NoError(t, err)
	defer cache.Close()
	assert.Equal(t, 24*time.Hour, cache.ttl)
}

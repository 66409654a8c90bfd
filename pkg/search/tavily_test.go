package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tavilyStub(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt64(hits, 1)
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["api_key"])
		assert.NotEmpty(t, body["query"])

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "A", "url": "https://a.test/1", "content": "first", "score": 0.9},
				{"title": "B", "url": "https://b.test/2", "content": "second", "score": 0.8},
				{"title": "C", "url": "https://c.test/3", "content": "third", "score": 0.7},
			},
		})
	}))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is missing")

	_, err = NewClient(Options{APIKey: "   "})
	assert.Error(t, err)
}

func TestSearchParsesResults(t *testing.T) {
	srv := tavilyStub(t, nil)
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "k", MaxResults: 2})
	require.NoError(t, err)
	c.endpoint = srv.URL

	resp, err := c.Search(context.Background(), "test query", false)
	require.NoError(t, err)

	require.Len(t, resp.Results, 2, "maxResults caps the result list")
	assert.Equal(t, "A", resp.Results[0].Title)
	assert.Equal(t, "a.test", resp.Results[0].Domain)
	assert.False(t, resp.FromCache)

	searches, cacheHits := c.Stats()
	assert.Equal(t, 1, searches)
	assert.Zero(t, cacheHits)
}

func TestSearchUsesCache(t *testing.T) {
	var hits int64
	srv := tavilyStub(t, &hits)
	defer srv.Close()

	cache, err := OpenCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	c, err := NewClient(Options{APIKey: "k", Cache: cache})
	require.NoError(t, err)
	c.endpoint = srv.URL

	first, err := c.Search(context.Background(), "cached query", true)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Search(context.Background(), "cached query", true)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Results, second.Results)

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "second search never hit the network")
	_, cacheHits := c.Stats()
	assert.Equal(t, 1, cacheHits)
}

func TestSearchBypassesCacheWhenAsked(t *testing.T) {
	var hits int64
	srv := tavilyStub(t, &hits)
	defer srv.Close()

	cache, err := OpenCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	c, err := NewClient(Options{APIKey: "k", Cache: cache})
	require.NoError(t, err)
	c.endpoint = srv.URL

	_, err = c.Search(context.Background(), "q", true)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q", false)
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestSearchRetriesOn429(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"title": "A", "url": "https://a.test", "content": "c", "score": 0.5}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "k"})
	require.NoError(t, err)
	c.endpoint = srv.URL

	resp, err := c.Search(context.Background(), "q", false)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "k"})
	require.NoError(t, err)
	c.endpoint = srv.URL

	_, err = c.Search(context.Background(), "q", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tavily http 500")
}

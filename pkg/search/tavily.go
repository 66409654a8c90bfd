package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Options configure a Client.
type Options struct {
	APIKey     string
	Depth      string // "basic" or "advanced"
	MaxResults int
	Cache      *Cache        // nil disables caching
	RateLimit  rate.Limit    // requests per second; 0 means no limit
	Timeout    time.Duration // per-request HTTP timeout
	Logger     *slog.Logger
}

// Client calls the Tavily search API.
type Client struct {
	apiKey     string
	endpoint   string
	depth      string
	maxResults int
	cache      *Cache
	limiter    *rate.Limiter
	http       *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	searches  int
	cacheHits int
}

// NewClient constructs a search client. The API key is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if opts.Depth == "" {
		opts.Depth = "basic"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}

	return &Client{
		apiKey:     opts.APIKey,
		endpoint:   tavilyEndpoint,
		depth:      opts.Depth,
		maxResults: opts.MaxResults,
		cache:      opts.Cache,
		limiter:    limiter,
		http:       &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}, nil
}

// Search runs a query, consulting the cache first when useCache is true.
// Expired cache entries are swept every tenth live search.
func (c *Client) Search(ctx context.Context, query string, useCache bool) (*Response, error) {
	if useCache && c.cache != nil {
		if results, ok := c.cache.Get(query); ok {
			c.mu.Lock()
			c.cacheHits++
			c.mu.Unlock()
			return &Response{Results: results, FromCache: true, Query: query}, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	results, err := c.post(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.searches++
	count := c.searches
	c.mu.Unlock()

	if useCache && c.cache != nil {
		if err := c.cache.Set(query, results); err != nil {
			c.logger.Warn("Failed to cache search results", "query", query, "error", err)
		}
		if count%10 == 0 {
			if err := c.cache.ClearExpired(); err != nil {
				c.logger.Warn("Failed to clear expired cache entries", "error", err)
			}
		}
	}

	return &Response{Results: results, Query: query}, nil
}

func (c *Client) post(ctx context.Context, query string) ([]Result, error) {
	body := map[string]any{
		"query":       query,
		"api_key":     c.apiKey,
		"depth":       c.depth,
		"max_results": c.maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling up to 30 s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var decoded struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"publishedDate"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
			Domain:        DomainOf(r.URL),
		})
		if len(results) >= c.maxResults {
			break
		}
	}
	return results, nil
}

// Stats returns the live-search and cache-hit counters.
func (c *Client) Stats() (searches, cacheHits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searches, c.cacheHits
}

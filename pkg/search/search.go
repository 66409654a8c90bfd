// Package search wraps the Tavily web search API with a TTL cache,
// client-side rate limiting, and usage counters.
package search

import (
	"fmt"
	"net/url"
	"strings"
)

// Result is a single processed search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
	Domain        string  `json:"domain"`
}

// Response carries results plus cache/usage metadata.
type Response struct {
	Results   []Result `json:"results"`
	FromCache bool     `json:"from_cache"`
	Query     string   `json:"query"`
}

// DomainOf extracts the host from a URL, or "" when it doesn't parse.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// DedupeByURL removes duplicate results keeping the highest-scoring copy
// per URL. Applying it twice yields the same output as applying it once.
func DedupeByURL(results []Result) []Result {
	best := make(map[string]int, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			out = append(out, r)
			continue
		}
		if i, ok := best[r.URL]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		best[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

// FormatForLLM renders results as a numbered block for analysis prompts.
func FormatForLLM(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		content := r.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Fprintf(&b, "%d. **%s**\n   URL: %s\n   Content: %s\n   Relevance: %.2f\n\n",
			i+1, r.Title, r.URL, content, r.Score)
	}
	return b.String()
}

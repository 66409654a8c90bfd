package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const arxivEndpoint = "https://export.arxiv.org/api/query?"

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type arxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Link      []arxivLink `xml:"link"`
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

// SearchArxiv queries the arXiv API for academic papers and returns the
// entries as search results. Papers get a flat relevance score; arXiv does
// not expose one.
func SearchArxiv(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(maxResults))
	params.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivEndpoint+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Entry))
	for _, e := range feed.Entry {
		link := ""
		for _, l := range e.Link {
			if l.Type == "application/pdf" {
				link = l.Href
				break
			}
			if link == "" {
				link = l.Href
			}
		}
		results = append(results, Result{
			Title:         strings.TrimSpace(e.Title),
			URL:           link,
			Content:       strings.TrimSpace(e.Summary),
			Score:         0.5,
			PublishedDate: e.Published,
			Domain:        "arxiv.org",
		})
	}
	return results, nil
}

// academicHints mark queries that benefit from searching the literature.
var academicHints = []string{
	"research", "study", "studies", "paper", "academic",
	"algorithm", "theory", "scientific", "peer-reviewed",
}

// LooksAcademic reports whether a query would plausibly hit arXiv.
func LooksAcademic(query string) bool {
	lower := strings.ToLower(query)
	for _, hint := range academicHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

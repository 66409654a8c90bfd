package crew

import (
	"sort"
	"strings"
)

// dedupeSources removes duplicate sources keeping the highest-scoring copy
// per URL. Order of first appearance is preserved and the function is
// idempotent.
func dedupeSources(sources []Source) []Source {
	best := make(map[string]int, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			out = append(out, s)
			continue
		}
		if i, ok := best[s.URL]; ok {
			if s.Score > out[i].Score {
				out[i] = s
			}
			continue
		}
		best[s.URL] = len(out)
		out = append(out, s)
	}
	return out
}

// authoritativeDomains are well-known primary or institutional publishers.
var authoritativeDomains = map[string]bool{
	"nature.com":        true,
	"science.org":       true,
	"ieee.org":          true,
	"acm.org":           true,
	"arxiv.org":         true,
	"nih.gov":           true,
	"who.int":           true,
	"reuters.com":       true,
	"apnews.com":        true,
	"bbc.com":           true,
	"nytimes.com":       true,
	"wsj.com":           true,
	"economist.com":     true,
	"github.com":        true,
	"stackoverflow.com": true,
}

// cautionDomains are user-generated or low-editorial-control sites.
var cautionDomains = map[string]bool{
	"reddit.com":    true,
	"quora.com":     true,
	"medium.com":    true,
	"facebook.com":  true,
	"twitter.com":   true,
	"x.com":         true,
	"pinterest.com": true,
}

// CredibilityScore rates a domain from 0 to 100 based on its type.
func CredibilityScore(domain string) float64 {
	d := strings.ToLower(strings.TrimPrefix(domain, "www."))
	switch {
	case authoritativeDomains[d]:
		return 85
	case cautionDomains[d]:
		return 30
	case strings.HasSuffix(d, ".gov"):
		return 90
	case strings.HasSuffix(d, ".edu"), strings.HasSuffix(d, ".ac.uk"):
		return 85
	case strings.HasSuffix(d, ".org"):
		return 70
	default:
		return 50
	}
}

// RankedSource is a deduplicated source annotated with credibility.
type RankedSource struct {
	Source
	Credibility float64 `json:"credibility"`
}

// RankSources builds the aggregate source view across all findings:
// deduplicated by URL, annotated with domain credibility, and sorted by
// credibility then relevance.
func RankSources(findings []Finding) []RankedSource {
	var all []Source
	for _, f := range findings {
		all = append(all, f.Sources...)
	}
	deduped := dedupeSources(all)

	ranked := make([]RankedSource, 0, len(deduped))
	for _, s := range deduped {
		ranked = append(ranked, RankedSource{Source: s, Credibility: CredibilityScore(s.Domain)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Credibility != ranked[j].Credibility {
			return ranked[i].Credibility > ranked[j].Credibility
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

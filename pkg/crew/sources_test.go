package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredibilityScore(t *testing.T) {
	tests := []struct {
		domain string
		want   float64
	}{
		{"nih.gov", 85}, // authoritative list wins over suffix
		{"data.census.gov", 90},
		{"mit.edu", 85},
		{"ox.ac.uk", 85},
		{"wikipedia.org", 70},
		{"nature.com", 85},
		{"reddit.com", 30},
		{"www.reddit.com", 30},
		{"randomblog.com", 50},
		{"", 50},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CredibilityScore(tc.domain), "domain %q", tc.domain)
	}
}

func TestRankSources(t *testing.T) {
	findings := []Finding{
		{Sources: []Source{
			{Title: "Blog", URL: "https://randomblog.com/p", Domain: "randomblog.com", Score: 0.95},
			{Title: "Gov", URL: "https://energy.gov/r", Domain: "energy.gov", Score: 0.5},
		}},
		{Sources: []Source{
			{Title: "Gov dup", URL: "https://energy.gov/r", Domain: "energy.gov", Score: 0.7},
			{Title: "Edu", URL: "https://mit.edu/s", Domain: "mit.edu", Score: 0.6},
		}},
	}

	ranked := RankSources(findings)
	require.Len(t, ranked, 3)

	assert.Equal(t, "energy.gov", ranked[0].Domain)
	assert.InDelta(t, 0.7, ranked[0].Score, 0.001, "dedupe keeps the higher-scoring copy")
	assert.Equal(t, "mit.edu", ranked[1].Domain)
	assert.Equal(t, "randomblog.com", ranked[2].Domain)
	assert.InDelta(t, 50, ranked[2].Credibility, 0.001)
}

func TestRankSourcesEmpty(t *testing.T) {
	assert.Empty(t, RankSources(nil))
	assert.Empty(t, RankSources([]Finding{{Angle: "a"}}))
}

package crew

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbellamy/research-crew/pkg/search"
)

func TestExtractClaims(t *testing.T) {
	findings := []Finding{
		{Text: "Electric vehicles made up 18% of global car sales in 2024. " +
			"Norway is the largest per-capita EV market in the world. " +
			"According to the IEA, battery prices fell sharply over the decade. " +
			"Studies show that range anxiety declines after six months of ownership."},
		{Text: "Short. 5% up."},
		{Err: true, Text: "According to a failed run, this claim must not appear anywhere."},
	}

	claims := extractClaims(findings)
	require.Len(t, claims, 4)
	assert.Contains(t, claims[0], "18%")
	assert.Contains(t, claims[1], "largest per-capita EV market")
	assert.Contains(t, claims[2], "According to the IEA")
	assert.Contains(t, claims[3], "Studies show")
}

func TestExtractClaimsDeduplicates(t *testing.T) {
	text := "According to researchers, solar capacity doubled between 2020 and 2024."
	findings := []Finding{{Text: text}, {Text: text}}
	assert.Len(t, extractClaims(findings), 1)
}

func TestParseVerificationStatus(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"STATUS: VERIFIED\nDETAILS: matches", "VERIFIED"},
		{"STATUS: PARTIALLY VERIFIED\nDETAILS: partial", "PARTIALLY VERIFIED"},
		{"STATUS: CONTRADICTED\nDETAILS: nope", "CONTRADICTED"},
		{"STATUS: UNVERIFIABLE", "UNVERIFIABLE"},
		{"no structure at all", "UNVERIFIABLE"},
		{"status: verified", "VERIFIED"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, parseVerificationStatus(tc.reply), "reply %q", tc.reply)
	}
}

func TestCheckNoClaims(t *testing.T) {
	checker := NewChecker(&fakeModel{replies: []string{"unused"}}, staticSearcher(), nil, nil, nil)

	report, err := checker.Check(context.Background(), []Finding{{Text: "Nothing factual to see."}}, "q")
	require.NoError(t, err)

	assert.Zero(t, report.TotalClaims)
	assert.InDelta(t, 100, report.ReliabilityScore, 0.001)
	require.NotEmpty(t, report.Recommendations)
}

func TestCheckVerifiesClaims(t *testing.T) {
	model := &fakeModel{replies: []string{"STATUS: VERIFIED\nDETAILS: confirmed by two sources"}}
	searcher := staticSearcher(search.Result{
		Title: "Sales report", URL: "https://stats.test/ev", Content: "18% share confirmed", Score: 0.9, Domain: "stats.test",
	})
	checker := NewChecker(model, searcher, nil, nil, nil)

	findings := []Finding{{Text: "Electric vehicles made up 18% of global car sales in 2024."}}
	report, err := checker.Check(context.Background(), findings, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalClaims)
	assert.Equal(t, 1, report.VerifiedClaims)
	assert.InDelta(t, 100, report.ReliabilityScore, 0.001)
	require.Len(t, report.Verifications, 1)
	assert.Equal(t, "VERIFIED", report.Verifications[0].Status)
	assert.Contains(t, report.Verifications[0].Details, "confirmed")
}

func TestCheckPartialCountsHalf(t *testing.T) {
	model := &fakeModel{replies: []string{"STATUS: PARTIALLY VERIFIED\nDETAILS: close"}}
	searcher := staticSearcher(search.Result{Title: "t", URL: "https://x.test", Content: "c", Score: 0.5})
	checker := NewChecker(model, searcher, nil, nil, nil)

	findings := []Finding{{Text: "Wind power supplied 12% of the grid last year."}}
	report, err := checker.Check(context.Background(), findings, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PartiallyVerified)
	assert.InDelta(t, 50, report.ReliabilityScore, 0.001)
}

func TestCheckSearchFailureIsUnverifiable(t *testing.T) {
	searcher := &fakeSearcher{fn: func(ctx context.Context, query string, useCache bool) (*search.Response, error) {
		assert.False(t, useCache, "verification must bypass the cache")
		return nil, errors.New("network down")
	}}
	checker := NewChecker(&fakeModel{replies: []string{"unused"}}, searcher, nil, nil, nil)

	findings := []Finding{{Text: "Solar adoption grew 40% in the residential market."}}
	report, err := checker.Check(context.Background(), findings, "q")
	require.NoError(t, err)

	require.Len(t, report.Unverifiable, 1)
	assert.Zero(t, report.ReliabilityScore)
}

func TestFactCheckReportAsFinding(t *testing.T) {
	r := &FactCheckReport{
		TotalClaims:      5,
		VerifiedClaims:   3,
		ReliabilityScore: 70,
		Contradictions: []ClaimVerification{
			{Claim: "the moon is cheese", Status: "CONTRADICTED", Details: "observational evidence"},
		},
		Recommendations: []string{"Review contradicted claims."},
	}

	f := r.AsFinding()
	assert.Equal(t, "fact_check", f.ItemID)
	assert.Equal(t, "Fact-Checking and Verification", f.Angle)
	assert.Contains(t, f.Text, "3 of 5")
	assert.Contains(t, f.Text, "the moon is cheese")
	assert.Contains(t, f.Text, "Review contradicted claims.")
	assert.False(t, f.Err)
}

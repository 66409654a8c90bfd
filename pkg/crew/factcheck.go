package crew

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/search"
	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// ClaimVerification is the outcome of verifying a single extracted claim.
type ClaimVerification struct {
	Claim   string `json:"claim"`
	Status  string `json:"status"` // VERIFIED, PARTIALLY VERIFIED, CONTRADICTED, UNVERIFIABLE
	Details string `json:"details"`
}

// FactCheckReport summarizes claim verification across all findings.
type FactCheckReport struct {
	TotalClaims       int                 `json:"total_claims"`
	VerifiedClaims    int                 `json:"verified_claims"`
	PartiallyVerified int                 `json:"partially_verified"`
	Contradictions    []ClaimVerification `json:"contradictions"`
	Unverifiable      []ClaimVerification `json:"unverifiable"`
	ReliabilityScore  float64             `json:"reliability_score"`
	Recommendations   []string            `json:"recommendations"`
	Verifications     []ClaimVerification `json:"verifications"`
}

// AsFinding renders the report as a synthetic finding so it flows into the
// synthesis alongside the research itself.
func (r *FactCheckReport) AsFinding() Finding {
	var b strings.Builder
	fmt.Fprintf(&b, "Fact-checking verified %d of %d factual claims (reliability %.1f%%).\n",
		r.VerifiedClaims, r.TotalClaims, r.ReliabilityScore)
	if r.PartiallyVerified > 0 {
		fmt.Fprintf(&b, "%d claims were only partially verified.\n", r.PartiallyVerified)
	}
	if len(r.Contradictions) > 0 {
		b.WriteString("\nContradicted claims:\n")
		for _, c := range r.Contradictions {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Claim, c.Details)
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	return Finding{
		ItemID: "fact_check",
		Angle:  "Fact-Checking and Verification",
		Text:   b.String(),
	}
}

var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[^.]*\d+(?:\.\d+)?%[^.]*\.`),
	regexp.MustCompile(`[^.]*\b(?:is|are|was|were)\s+the\s+(?:first|largest|biggest|smallest|only|most|least)\b[^.]*\.`),
	regexp.MustCompile(`[^.]*\bAccording to\b[^.]*\.`),
	regexp.MustCompile(`[^.]*\bStudies show\b[^.]*\.`),
	regexp.MustCompile(`[^.]*\bResearch indicates\b[^.]*\.`),
}

// Checker implements FactChecker by extracting verifiable claims from the
// findings and cross-checking each against a fresh web search.
type Checker struct {
	agentCore
	searcher  Searcher
	maxClaims int
}

// NewChecker builds the fact-checking agent.
func NewChecker(model llms.Model, searcher Searcher, costFn CostFunc, logger *slog.Logger, tl *thoughts.Logger) *Checker {
	return &Checker{
		agentCore: newAgentCore("fact_checker", model, costFn, logger, tl),
		searcher:  searcher,
		maxClaims: 10,
	}
}

// Check verifies the most prominent claims in the findings. Individual
// verification failures degrade to UNVERIFIABLE; only a completely empty
// claim set short-circuits.
func (c *Checker) Check(ctx context.Context, findings []Finding, objective string) (*FactCheckReport, error) {
	claims := extractClaims(findings)
	c.think(thoughts.Analyzing,
		fmt.Sprintf("Extracted %d verifiable claims for fact-checking", len(claims)),
		map[string]any{"claims": len(claims)})

	report := &FactCheckReport{TotalClaims: len(claims)}
	if len(claims) == 0 {
		report.ReliabilityScore = 100
		report.Recommendations = []string{"No specific factual claims were found to verify."}
		return report, nil
	}
	if len(claims) > c.maxClaims {
		claims = claims[:c.maxClaims]
	}

	for i, claim := range claims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.think(thoughts.Searching,
			fmt.Sprintf("Verifying claim %d/%d", i+1, len(claims)),
			map[string]any{"claim": truncate(claim, 120)})

		v := c.verify(ctx, claim)
		report.Verifications = append(report.Verifications, v)
		switch v.Status {
		case "VERIFIED":
			report.VerifiedClaims++
		case "PARTIALLY VERIFIED":
			report.PartiallyVerified++
		case "CONTRADICTED":
			report.Contradictions = append(report.Contradictions, v)
		default:
			report.Unverifiable = append(report.Unverifiable, v)
		}
	}

	checked := len(report.Verifications)
	if checked > 0 {
		report.ReliabilityScore = (float64(report.VerifiedClaims) + 0.5*float64(report.PartiallyVerified)) / float64(checked) * 100
	}
	report.Recommendations = buildRecommendations(report)

	c.thoughts.LogConfidence(c.id, c.agentType, thoughts.Evaluating,
		fmt.Sprintf("Fact-check complete: %d/%d verified, reliability %.1f%%",
			report.VerifiedClaims, checked, report.ReliabilityScore),
		map[string]any{"contradictions": len(report.Contradictions)},
		report.ReliabilityScore/100)
	return report, nil
}

// verify cross-checks one claim with an uncached search plus a model
// judgment over the hits.
func (c *Checker) verify(ctx context.Context, claim string) ClaimVerification {
	v := ClaimVerification{Claim: claim, Status: "UNVERIFIABLE"}

	resp, err := c.searcher.Search(ctx, claim, false)
	if err != nil || len(resp.Results) == 0 {
		v.Details = "no search results available for verification"
		return v
	}

	limit := len(resp.Results)
	if limit > 3 {
		limit = 3
	}
	prompt := fmt.Sprintf(`Fact-check this claim against the search results:

CLAIM: %s

SEARCH RESULTS:
%s

Respond in exactly this format:
STATUS: <VERIFIED, PARTIALLY VERIFIED, CONTRADICTED, or UNVERIFIABLE>
DETAILS: <one sentence explaining the judgment>`, claim, search.FormatForLLM(resp.Results[:limit]))

	reply, err := c.invoke(ctx, "", prompt)
	if err != nil {
		v.Details = "verification judgment failed: " + err.Error()
		return v
	}

	v.Status = parseVerificationStatus(reply)
	v.Details = extractSection(reply, "DETAILS:")
	return v
}

func parseVerificationStatus(reply string) string {
	upper := strings.ToUpper(reply)
	// Order matters: "PARTIALLY VERIFIED" contains "VERIFIED".
	switch {
	case strings.Contains(upper, "PARTIALLY VERIFIED"):
		return "PARTIALLY VERIFIED"
	case strings.Contains(upper, "CONTRADICTED"):
		return "CONTRADICTED"
	case strings.Contains(upper, "VERIFIED"):
		return "VERIFIED"
	default:
		return "UNVERIFIABLE"
	}
}

// extractClaims pulls checkable statements out of the finding texts,
// deduplicating on a normalized prefix.
func extractClaims(findings []Finding) []string {
	var claims []string
	seen := make(map[string]bool)

	for _, f := range findings {
		if f.Err {
			continue
		}
		for _, pattern := range claimPatterns {
			for _, m := range pattern.FindAllString(f.Text, -1) {
				claim := strings.TrimSpace(m)
				if len(claim) <= 20 {
					continue
				}
				key := strings.ToLower(truncate(claim, 50))
				if seen[key] {
					continue
				}
				seen[key] = true
				claims = append(claims, claim)
			}
		}
	}
	return claims
}

func buildRecommendations(r *FactCheckReport) []string {
	var recs []string
	if len(r.Contradictions) > 0 {
		recs = append(recs, fmt.Sprintf("Review %d contradicted claims before relying on the findings.", len(r.Contradictions)))
	}
	if len(r.Unverifiable) > len(r.Verifications)/2 {
		recs = append(recs, "A majority of claims could not be verified; treat specifics with caution.")
	}
	if r.ReliabilityScore >= 80 {
		recs = append(recs, "Findings are broadly consistent with independent sources.")
	} else if r.ReliabilityScore < 50 {
		recs = append(recs, "Low reliability score; consider rerunning the research with different angles.")
	}
	return recs
}

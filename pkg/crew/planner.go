package crew

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// LeadResearcher breaks the objective into research angles and synthesizes
// the accumulated findings into the final report body.
type LeadResearcher struct {
	agentCore
}

// NewLeadResearcher builds the planning/synthesis agent.
func NewLeadResearcher(model llms.Model, costFn CostFunc, logger *slog.Logger, tl *thoughts.Logger) *LeadResearcher {
	return &LeadResearcher{agentCore: newAgentCore("lead_researcher", model, costFn, logger, tl)}
}

// Plan asks the model for a research strategy and extracts discrete angles
// from it.
func (l *LeadResearcher) Plan(ctx context.Context, objective string) (*ResearchPlan, error) {
	l.think(thoughts.Planning, "Starting research planning for query: "+objective, nil)

	prompt := fmt.Sprintf(`As the Lead Research Coordinator, analyze this research query and develop a comprehensive research strategy:

Query: %s

Please:
1. Identify the key aspects and sub-questions that need investigation
2. Determine what types of information would be most valuable
3. Suggest 3-5 specific research angles for sub-researchers to explore
4. Consider potential challenges or areas requiring special attention

Provide a structured research plan.`, objective)

	plan, err := l.invoke(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	angles := parseAngles(plan)
	l.thoughts.LogConfidence(l.id, l.agentType, thoughts.Deciding,
		fmt.Sprintf("Identified %d research angles based on query analysis", len(angles)),
		map[string]any{"angles": angles}, 0.8)

	return &ResearchPlan{Objective: objective, Plan: plan, Angles: angles}, nil
}

// parseAngles pulls numbered or bulleted lines out of a free-text plan.
// Very short items are noise and get dropped; at most five angles survive.
func parseAngles(plan string) []string {
	var angles []string
	for _, line := range strings.Split(plan, "\n") {
		trimmed := strings.TrimSpace(line)
		isItem := false
		for _, marker := range []string{"1.", "2.", "3.", "4.", "5.", "-", "•", "*"} {
			if strings.HasPrefix(trimmed, marker) {
				isItem = true
				break
			}
		}
		if !isItem {
			continue
		}
		cleaned := strings.TrimSpace(strings.Trim(strings.TrimLeft(trimmed, "0123456789.-•* "), `"'`))
		if len(cleaned) > 10 {
			angles = append(angles, cleaned)
		}
	}
	if len(angles) > 5 {
		angles = angles[:5]
	}
	return angles
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Synthesize combines every finding into the final report body, numbering
// sources into a master list and rewriting inline [n] citations into
// clickable links.
func (l *LeadResearcher) Synthesize(ctx context.Context, findings []Finding, objective string) (string, error) {
	l.think(thoughts.Synthesizing,
		fmt.Sprintf("Starting synthesis of findings from %d sub-researchers", len(findings)),
		map[string]any{"num_findings": len(findings)})

	prompt, allSources := buildSynthesisPrompt(findings, objective)
	synthesis, err := l.invoke(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}

	synthesis = linkCitations(synthesis, allSources)
	l.thoughts.LogConfidence(l.id, l.agentType, thoughts.Synthesizing,
		"Completed synthesis of research findings",
		map[string]any{"synthesis_length": len(synthesis)}, 0.9)
	return synthesis, nil
}

// linkCitations rewrites [n] into [[n]](url) for every numbered source.
func linkCitations(text string, sources []Source) string {
	return citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		var n int
		fmt.Sscanf(m, "[%d]", &n)
		if n >= 1 && n <= len(sources) {
			u := sources[n-1].URL
			if u == "" {
				u = "#"
			}
			return fmt.Sprintf("[[%d]](%s)", n, u)
		}
		return m
	})
}

func buildSynthesisPrompt(findings []Finding, objective string) (string, []Source) {
	var blocks []string
	var allSources []Source

	for i, f := range findings {
		var sourcesText strings.Builder
		if len(f.Sources) > 0 {
			sourcesText.WriteString("\n\n**Sources Used:**\n")
			limit := len(f.Sources)
			if limit > 5 {
				limit = 5
			}
			for _, s := range f.Sources[:limit] {
				idx := len(allSources) + 1
				fmt.Fprintf(&sourcesText, "[%d] %s - %s (Relevance: %.2f)\n", idx, s.Title, s.Domain, s.Score)
				allSources = append(allSources, s)
			}
		}
		blocks = append(blocks, fmt.Sprintf("**Research Angle %d: %s**\n%s%s", i+1, f.Angle, f.Text, sourcesText.String()))
	}

	var sourceList strings.Builder
	for i, s := range allSources {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&sourceList, "[%d] [%s](%s) - %s\n", i+1, title, s.URL, s.Domain)
	}

	prompt := fmt.Sprintf(`As the Lead Research Coordinator, synthesize these research findings into a comprehensive report with CONCRETE ANSWERS:

ORIGINAL QUERY: %s

%s

Create a synthesis with the following MANDATORY sections:

## EXECUTIVE SUMMARY (3-5 bullet points)
- Start each bullet with a definitive answer or recommendation, with specific numbers or concrete details.

## KEY FINDINGS (Numbered list with detail)
For each major finding give the supporting evidence, why it matters, and relevant data points.

## SPECIFIC RECOMMENDATIONS
For each major aspect of the query: WHAT to do, WHY (evidence-based reasoning), HOW (practical steps), and a CONFIDENCE LEVEL (High/Medium/Low).

## DIRECT ANSWERS
Address each part of the original query with a clear answer, a supported explanation, and important caveats.

## EVIDENCE & SOURCES
Cite specific sources using [#] notation from the source list below. Note any conflicting information and how you reconciled it, and identify gaps where definitive answers were not possible.

MASTER SOURCE LIST:
%s

## RISK ASSESSMENT
Major risks if the recommendations are followed, and if they are not.

## NEXT STEPS (Prioritized action plan)

The user needs concrete, actionable answers with enough detail to implement them. If you cannot give a definitive answer, state exactly what additional information would be needed and why.`,
		objective, strings.Join(blocks, "\n\n"), sourceList.String())

	return prompt, allSources
}

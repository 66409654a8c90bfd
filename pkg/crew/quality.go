package crew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// QualityController implements Gate. It asks the model to score the
// accumulated findings and parses the labeled marker lines out of the
// reply. Evaluation never fails: an unreachable model or garbled reply
// yields a zero report, which the loop treats as "nothing to refine".
type QualityController struct {
	agentCore
}

// NewQualityController builds the evaluation agent.
func NewQualityController(model llms.Model, costFn CostFunc, logger *slog.Logger, tl *thoughts.Logger) *QualityController {
	return &QualityController{agentCore: newAgentCore("quality_controller", model, costFn, logger, tl)}
}

// Evaluate scores the full accumulated finding set against the objective.
func (q *QualityController) Evaluate(ctx context.Context, findings []Finding, objective string) QualityReport {
	q.think(thoughts.Evaluating,
		fmt.Sprintf("Evaluating quality of %d research findings", len(findings)), nil)

	if len(findings) == 0 {
		return QualityReport{Evaluation: "No findings to evaluate"}
	}

	var blocks []string
	for i, f := range findings {
		blocks = append(blocks, fmt.Sprintf("Finding %d (%s):\n%s", i+1, f.Angle, truncate(f.Text, 1500)))
	}

	prompt := fmt.Sprintf(`As a Quality Controller, evaluate these research findings against the original query:

ORIGINAL QUERY: %s

RESEARCH FINDINGS:
%s

Evaluate the research on these dimensions:
1. COMPLETENESS: Does the research address all aspects of the query?
2. ACCURACY: Are the findings factual and well-sourced?
3. MISSING INFORMATION: What important aspects are not covered?
4. CONTRADICTIONS: Are there conflicting findings that need resolution?

Respond in exactly this format:
COMPLETENESS_SCORE: <0-100>
ACCURACY_SCORE: <0-100>
CONFIDENCE: <0-100>
MISSING_INFO: <list missing aspects, one per line, or "None">
CONTRADICTIONS: <describe any contradictions, or "None">
IMPROVEMENTS: <what would most improve the research>
EVALUATION: <one paragraph overall assessment>`, objective, strings.Join(blocks, "\n\n"))

	reply, err := q.invoke(ctx, "", prompt)
	if err != nil {
		q.logger.Warn("Quality evaluation failed, returning zero report", "error", err)
		q.think(thoughts.Error, "Quality evaluation failed: "+err.Error(), nil)
		return QualityReport{}
	}

	report := parseQualityReply(reply)
	q.thoughts.LogConfidence(q.id, q.agentType, thoughts.Evaluating,
		fmt.Sprintf("Quality evaluation complete: %.1f/100 overall", report.Overall()),
		map[string]any{
			"completeness": report.Completeness,
			"accuracy":     report.Accuracy,
			"missing":      report.MissingAspects,
		}, report.Confidence/100)
	return report
}

// parseQualityReply extracts the labeled fields. Missing markers become
// zero scores or empty sections.
func parseQualityReply(reply string) QualityReport {
	return QualityReport{
		Completeness:   extractScore(reply, "COMPLETENESS_SCORE:"),
		Accuracy:       extractScore(reply, "ACCURACY_SCORE:"),
		Confidence:     extractScore(reply, "CONFIDENCE:"),
		MissingAspects: splitListSection(extractSection(reply, "MISSING_INFO:")),
		Contradictions: dropNone(extractSection(reply, "CONTRADICTIONS:")),
		Improvements:   dropNone(extractSection(reply, "IMPROVEMENTS:")),
		Evaluation:     extractSection(reply, "EVALUATION:"),
	}
}

// dropNone blanks "None"-style placeholders so downstream code can treat
// the section as absent.
func dropNone(section string) string {
	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(section), ".")) {
	case "none", "n/a", "none identified":
		return ""
	}
	return section
}

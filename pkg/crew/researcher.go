package crew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/pbellamy/research-crew/pkg/search"
	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// Searcher is the web-search collaborator used by sub-researchers and the
// fact checker.
type Searcher interface {
	Search(ctx context.Context, query string, useCache bool) (*search.Response, error)
}

// ResearcherTeam implements Executor. Each Execute call behaves as one
// specialized sub-researcher: generate queries for the angle, search,
// analyze the hits, and synthesize a finding.
type ResearcherTeam struct {
	model       llms.Model
	searcher    Searcher
	costFn      CostFunc
	logger      *slog.Logger
	thoughts    *thoughts.Logger
	maxSearches int
}

// NewResearcherTeam builds the executor shared by all work items.
func NewResearcherTeam(model llms.Model, searcher Searcher, costFn CostFunc, logger *slog.Logger, tl *thoughts.Logger) *ResearcherTeam {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResearcherTeam{
		model:       model,
		searcher:    searcher,
		costFn:      costFn,
		logger:      logger,
		thoughts:    tl,
		maxSearches: 3,
	}
}

type searchFinding struct {
	query     string
	analysis  string
	results   int
	fromCache bool
	sources   []Source
}

// Execute researches one work item. Transport errors on individual
// searches degrade the finding; only a total failure (no queries, failed
// synthesis) returns an error for the pool to convert.
func (t *ResearcherTeam) Execute(ctx context.Context, item WorkItem, objective string) (Finding, error) {
	core := newAgentCore("sub_researcher", t.model, t.costFn, t.logger, t.thoughts)
	core.think(thoughts.Info, "Starting research on angle: "+item.Description,
		map[string]any{"round": item.Round})

	queries, err := t.generateQueries(ctx, &core, item.Description, objective, nil)
	if err != nil {
		return Finding{}, err
	}

	var collected []searchFinding
	var queriesUsed []string

	collected, queriesUsed = t.runSearches(ctx, &core, item.Description, objective, queries, collected, queriesUsed)

	// Adaptive pass: too few usable results, so generate follow-up queries
	// informed by what came back.
	if len(collected) < 2 && len(queriesUsed) < t.maxSearches {
		core.think(thoughts.Planning, "Insufficient findings. Generating additional context-aware queries.",
			map[string]any{"current_findings": len(collected)})

		var summary strings.Builder
		for _, f := range collected {
			summary.WriteString(truncate(f.analysis, 200) + "...\n")
		}
		extra, err := t.generateQueries(ctx, &core, item.Description,
			objective+"\n\nPrevious findings summary:\n"+summary.String(), queriesUsed)
		if err == nil {
			budget := t.maxSearches - len(queriesUsed)
			if len(extra) > budget {
				extra = extra[:budget]
			}
			collected, queriesUsed = t.runSearches(ctx, &core, item.Description, objective, extra, collected, queriesUsed)
		}
	}

	synthesis, err := t.synthesize(ctx, &core, item.Description, collected)
	if err != nil {
		return Finding{}, err
	}

	var allSources []Source
	details := make([]QueryDetail, 0, len(collected))
	for _, f := range collected {
		allSources = append(allSources, f.sources...)
		details = append(details, QueryDetail{Query: f.query, NumResults: f.results, FromCache: f.fromCache})
	}

	core.thoughts.LogConfidence(core.id, core.agentType, thoughts.Info,
		"Completed research on angle: "+item.Description,
		map[string]any{"searches_performed": len(collected), "total_cost": core.Cost()}, 0.85)

	return Finding{
		ItemID:       item.ID,
		Angle:        item.Description,
		Text:         synthesis,
		Sources:      dedupeSources(allSources),
		QueryDetails: details,
		Searches:     len(collected),
		Cost:         core.Cost(),
	}, nil
}

func (t *ResearcherTeam) runSearches(ctx context.Context, core *agentCore, angle, objective string, queries []string, collected []searchFinding, used []string) ([]searchFinding, []string) {
	for _, query := range queries {
		if len(used) >= t.maxSearches {
			break
		}
		core.think(thoughts.Searching, fmt.Sprintf("Executing search %d/%d: %s", len(used)+1, t.maxSearches, query),
			map[string]any{"query": query})
		used = append(used, query)

		resp, err := t.searcher.Search(ctx, query, true)
		if err != nil {
			core.think(thoughts.Error, "Search failed for query: "+query, map[string]any{"error": err.Error()})
			continue
		}
		results := resp.Results
		// Academic-sounding queries also hit the literature.
		if search.LooksAcademic(query) {
			if papers, err := search.SearchArxiv(ctx, query, 3); err == nil && len(papers) > 0 {
				core.think(thoughts.Searching,
					fmt.Sprintf("Found %d arXiv papers for query: %s", len(papers), query), nil)
				results = search.DedupeByURL(append(results, papers...))
			}
		}
		if len(results) == 0 {
			core.think(thoughts.Info, "No results for query: "+query, nil)
			continue
		}

		analysis, err := t.analyze(ctx, core, angle, objective, results)
		if err != nil {
			core.think(thoughts.Error, "Analysis failed for query: "+query, map[string]any{"error": err.Error()})
			continue
		}

		limit := len(results)
		if limit > 5 {
			limit = 5
		}
		sources := make([]Source, 0, limit)
		for _, r := range results[:limit] {
			sources = append(sources, Source{Title: r.Title, URL: r.URL, Domain: r.Domain, Score: r.Score})
		}

		collected = append(collected, searchFinding{
			query:     query,
			analysis:  analysis,
			results:   len(results),
			fromCache: resp.FromCache,
			sources:   sources,
		})
	}
	return collected, used
}

func (t *ResearcherTeam) generateQueries(ctx context.Context, core *agentCore, angle, objective string, previous []string) ([]string, error) {
	var prevBlock string
	if len(previous) > 0 {
		prevBlock = "\nPrevious queries used: " + strings.Join(previous, ", ") +
			"\nAvoid duplicating these queries. Instead, explore complementary aspects."
	}

	prompt := fmt.Sprintf(`Given this research angle: %s
And this context: %s%s

Generate 3 specific search queries that would help gather relevant information.
Consider:
1. What aspects haven't been explored yet?
2. What follow-up questions emerge from the context?
3. What alternative perspectives should be investigated?

Return only the queries, one per line. Make queries specific and diverse.`, angle, objective, prevBlock)

	resp, err := core.invoke(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	queries := parseListLines(resp, 5)
	if len(queries) > 3 {
		queries = queries[:3]
	}
	core.thoughts.LogConfidence(core.id, core.agentType, thoughts.Deciding,
		fmt.Sprintf("Selected %d search queries for research angle", len(queries)),
		map[string]any{"queries": queries}, 0.75)
	return queries, nil
}

func (t *ResearcherTeam) analyze(ctx context.Context, core *agentCore, angle, objective string, results []search.Result) (string, error) {
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	prompt := fmt.Sprintf(`Analyze these search results in the context of the research angle:

Research Angle: %s
Context: %s

Search Results:
%s

Extract and summarize the key findings that are relevant to the research angle.
Focus on factual information and credible insights.

IMPORTANT: When you reference specific facts or findings, indicate which source it came from by mentioning the source number (e.g., "According to source 1...").`,
		angle, objective, search.FormatForLLM(results[:limit]))

	return core.invoke(ctx, "", prompt)
}

func (t *ResearcherTeam) synthesize(ctx context.Context, core *agentCore, angle string, collected []searchFinding) (string, error) {
	if len(collected) == 0 {
		// Nothing came back from any search; report that honestly rather
		// than asking the model to invent content.
		return "No usable search results were found for this angle.", nil
	}

	var blocks []string
	for i, f := range collected {
		blocks = append(blocks, fmt.Sprintf("Search %d (%s):\n%s", i+1, f.query, f.analysis))
	}

	prompt := fmt.Sprintf(`Synthesize these research findings into a comprehensive summary:

Research Angle: %s

Findings:
%s

Create a cohesive summary that:
1. Integrates insights from all searches
2. Highlights the most important findings
3. Notes any conflicting information or gaps
4. Provides specific examples or evidence where available`, angle, strings.Join(blocks, "\n\n"))

	return core.invoke(ctx, "", prompt)
}

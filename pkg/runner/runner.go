// Package runner assembles the research pipeline from configuration:
// LLM clients per agent role, the search client with its cache, the
// thought log, and the orchestrator itself.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/pbellamy/research-crew/pkg/clients"
	"github.com/pbellamy/research-crew/pkg/config"
	"github.com/pbellamy/research-crew/pkg/crew"
	"github.com/pbellamy/research-crew/pkg/search"
	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// Options override optional pieces of the assembled pipeline.
type Options struct {
	Store      crew.Store
	Logger     *slog.Logger
	Progress   crew.ProgressFunc
	ThoughtDir string
}

// Runner owns the assembled pipeline and its resources.
type Runner struct {
	Crew     *crew.Crew
	Thoughts *thoughts.Logger
	Search   *search.Client

	cache *search.Cache
}

// New wires up a complete pipeline. Call Close when done to flush the
// thought log and release the cache.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := search.OpenCache(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		// Research works without a cache, just slower and pricier.
		logger.Warn("Search cache unavailable, continuing without it", "error", err)
		cache = nil
	}

	searcher, err := search.NewClient(search.Options{
		APIKey:     cfg.TavilyApiKey,
		Depth:      cfg.SearchDepth,
		MaxResults: cfg.MaxSearchResults,
		Cache:      cache,
		RateLimit:  rate.Limit(cfg.SearchRateLimit),
		Logger:     logger,
	})
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	thoughtDir := opts.ThoughtDir
	if thoughtDir == "" {
		thoughtDir = filepath.Join(cfg.OutputDir, "thoughts")
	}
	tl, err := thoughts.New(thoughtDir)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("failed to start thought log: %w", err)
	}

	cleanup := func() {
		tl.Stop()
		if cache != nil {
			cache.Close()
		}
	}

	costFor := func(model string) crew.CostFunc {
		return func(in, out int) float64 {
			return cfg.Models.EstimateCost(model, in, out)
		}
	}

	leadCfg := cfg.Models.ForAgent("lead_researcher")
	leadModel, err := clients.ForAgent(ctx, cfg, "lead_researcher")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create lead researcher client: %w", err)
	}
	subCfg := cfg.Models.ForAgent("sub_researcher")
	subModel, err := clients.ForAgent(ctx, cfg, "sub_researcher")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create sub researcher client: %w", err)
	}
	qcCfg := cfg.Models.ForAgent("quality_controller")
	qcModel, err := clients.ForAgent(ctx, cfg, "quality_controller")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create quality controller client: %w", err)
	}
	fcCfg := cfg.Models.ForAgent("fact_checker")
	fcModel, err := clients.ForAgent(ctx, cfg, "fact_checker")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create fact checker client: %w", err)
	}

	planner := crew.NewLeadResearcher(leadModel, costFor(leadCfg.Model), logger, tl)
	executor := crew.NewResearcherTeam(subModel, searcher, costFor(subCfg.Model), logger, tl)
	gate := crew.NewQualityController(qcModel, costFor(qcCfg.Model), logger, tl)
	checker := crew.NewChecker(fcModel, searcher, costFor(fcCfg.Model), logger, tl)

	c, err := crew.New(crew.Config{
		MaxRounds:        cfg.MaxRounds,
		QualityThreshold: cfg.QualityThreshold,
		MaxResearchers:   cfg.MaxResearchers,
		MaxParallel:      cfg.MaxParallel,
		ItemTimeout:      cfg.ItemTimeout,
		EnableQuality:    cfg.EnableQuality,
		EnableFactCheck:  cfg.EnableFactCheck,
	}, crew.Deps{
		Planner:  planner,
		Executor: executor,
		Gate:     gate,
		Checker:  checker,
		Store:    opts.Store,
		Progress: opts.Progress,
		Logger:   logger,
		Thoughts: tl,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	return &Runner{Crew: c, Thoughts: tl, Search: searcher, cache: cache}, nil
}

// Close flushes the thought log and releases the search cache.
func (r *Runner) Close() {
	r.Thoughts.Stop()
	if r.cache != nil {
		r.cache.Close()
	}
}

// Package crew coordinates the multi-agent research pipeline: a planner
// breaks an objective into angles, a worker pool researches the angles in
// parallel, a quality gate scores the accumulated findings, and the loop
// iterates with targeted follow-up work until the score clears the
// threshold or the round budget runs out.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbellamy/research-crew/pkg/thoughts"
)

// Planner produces the round-zero angles and the final synthesis.
type Planner interface {
	Plan(ctx context.Context, objective string) (*ResearchPlan, error)
	Synthesize(ctx context.Context, findings []Finding, objective string) (string, error)
	Cost() float64
}

// Executor researches a single work item. A returned error is converted by
// the pool into an error finding; it never aborts the round.
type Executor interface {
	Execute(ctx context.Context, item WorkItem, objective string) (Finding, error)
}

// Gate scores the accumulated findings against the objective. It is total:
// it always returns a report, even when the underlying judgment call fails
// or its output is unparsable.
type Gate interface {
	Evaluate(ctx context.Context, findings []Finding, objective string) QualityReport
}

// FactChecker verifies claims across findings after the loop terminates.
type FactChecker interface {
	Check(ctx context.Context, findings []Finding, objective string) (*FactCheckReport, error)
}

// Store persists sessions and findings at the loop's checkpoints. Store
// failures are logged and surfaced as report warnings, never as
// orchestration failures.
type Store interface {
	CreateSession(ctx context.Context, objective string, plan *ResearchPlan) (string, error)
	SaveFinding(ctx context.Context, sessionID string, f Finding) error
	CompleteSession(ctx context.Context, sessionID string, rep *Report) error
}

// sessionFailer is an optional Store extension. Stores that implement it
// are told when a run aborts, so the session row does not stay 'running'
// forever.
type sessionFailer interface {
	FailSession(ctx context.Context, sessionID string, reason string) error
}

// ProgressFunc receives a status line and a fraction in [0,1] at each major
// state transition. Purely observational.
type ProgressFunc func(status string, fraction float64)

// Deps are the injected collaborators. Planner and Executor are required;
// everything else is optional.
type Deps struct {
	Planner  Planner
	Executor Executor
	Gate     Gate
	Checker  FactChecker
	Store    Store
	Progress ProgressFunc
	Logger   *slog.Logger
	Thoughts *thoughts.Logger
}

// Crew runs the orchestration loop.
type Crew struct {
	cfg      Config
	planner  Planner
	executor Executor
	gate     Gate
	checker  FactChecker
	store    Store
	progress ProgressFunc
	logger   *slog.Logger
	thoughts *thoughts.Logger
}

// New validates dependencies and applies config defaults.
func New(cfg Config, deps Deps) (*Crew, error) {
	if deps.Planner == nil {
		return nil, fmt.Errorf("crew: planner is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("crew: executor is required")
	}

	def := DefaultConfig()
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = def.QualityThreshold
	}
	if cfg.MaxResearchers <= 0 {
		cfg.MaxResearchers = def.MaxResearchers
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = def.MaxParallel
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Crew{
		cfg:      cfg,
		planner:  deps.Planner,
		executor: deps.Executor,
		gate:     deps.Gate,
		checker:  deps.Checker,
		store:    deps.Store,
		progress: deps.Progress,
		logger:   logger,
		thoughts: deps.Thoughts,
	}, nil
}

// fallbackAngles is used when the planner yields nothing parseable.
var fallbackAngles = []string{
	"General background and context",
	"Current state and recent developments",
	"Key challenges and considerations",
	"Future implications and trends",
}

// Run conducts research on the objective and always returns a best-effort
// report unless the context is cancelled or planning cannot even fall back.
func (c *Crew) Run(ctx context.Context, objective string) (*Report, error) {
	start := time.Now()
	c.reportProgress("Creating research plan...", 0.1)

	plan := c.buildPlan(ctx, objective)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []string
	sessionID := c.createSession(ctx, objective, plan, &warnings)

	angles := plan.Angles
	if len(angles) > c.cfg.MaxResearchers {
		angles = angles[:c.cfg.MaxResearchers]
	}
	items := make([]WorkItem, len(angles))
	for i, angle := range angles {
		items[i] = WorkItem{ID: shortID(), Description: angle, Round: 1}
	}

	c.reportProgress(fmt.Sprintf("Deploying %d sub-researchers...", len(items)), 0.2)
	c.reportProgress("Conducting parallel research...", 0.3)

	findings := c.runPool(ctx, items, objective, 0.3, 0.5)
	c.persistFindings(ctx, sessionID, findings, &warnings)

	state := RoundState{Round: 1, Findings: findings}
	thresholdMet := false

	if c.cfg.EnableQuality && c.gate != nil {
		for {
			// Cooperative cancellation point between rounds.
			if err := ctx.Err(); err != nil {
				c.failSession(sessionID, err.Error())
				return nil, err
			}

			q := c.gate.Evaluate(ctx, state.Findings, objective)
			state.Quality = q
			overall := q.Overall()

			c.logger.Info("Evaluated research quality",
				"round", state.Round, "overall", overall,
				"completeness", q.Completeness, "accuracy", q.Accuracy,
				"missing_aspects", len(q.MissingAspects))
			c.thoughts.Log("research_crew", "orchestrator", thoughts.Evaluating,
				fmt.Sprintf("Round %d: research quality score: %.1f/100", state.Round, overall),
				map[string]any{"round": state.Round, "quality_score": overall, "missing_aspects": q.MissingAspects})

			if overall >= c.cfg.QualityThreshold {
				thresholdMet = true
				c.thoughts.LogConfidence("research_crew", "orchestrator", thoughts.Deciding,
					"Research quality meets threshold. Proceeding to synthesis.", nil, 0.9)
				break
			}

			if state.Round >= c.cfg.MaxRounds {
				msg := fmt.Sprintf("quality threshold not met after %d rounds (final score %.1f)", state.Round, overall)
				warnings = append(warnings, msg)
				c.logger.Warn("Maximum rounds reached, proceeding with current findings", "final_quality", overall)
				break
			}

			targeted := deriveTargeted(q, state.Round+1)
			if len(targeted) == 0 {
				// Degenerate report: nothing to refine, so don't spin with
				// empty work.
				warnings = append(warnings, "quality gate proposed no follow-up work; terminating early")
				break
			}

			c.thoughts.Log("research_crew", "orchestrator", thoughts.Planning,
				fmt.Sprintf("Quality below threshold. Initiating round %d with %d targeted researchers.", state.Round+1, len(targeted)),
				map[string]any{"missing_aspects": q.MissingAspects, "improvements_needed": q.Improvements})
			c.reportProgress(fmt.Sprintf("Refining research (round %d)...", state.Round+1),
				0.3+0.4*float64(state.Round)/float64(c.cfg.MaxRounds))

			newFindings := c.runPool(ctx, targeted, objective, 0, 0)
			c.persistFindings(ctx, sessionID, newFindings, &warnings)

			merged := make([]Finding, 0, len(state.Findings)+len(newFindings))
			merged = append(merged, state.Findings...)
			merged = append(merged, newFindings...)
			state = RoundState{Round: state.Round + 1, Findings: merged, Quality: q}
		}
	}
	state.Done = true

	if c.cfg.EnableFactCheck && c.checker != nil {
		c.reportProgress("Fact-checking research findings...", 0.75)
		fc, err := c.checker.Check(ctx, state.Findings, objective)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("fact-checking failed: %v", err))
			c.logger.Warn("Fact-checking failed", "error", err)
		} else if fc != nil {
			c.thoughts.Log("research_crew", "orchestrator", thoughts.Evaluating,
				fmt.Sprintf("Fact-checking complete. Reliability score: %.1f%%", fc.ReliabilityScore),
				map[string]any{"verified_claims": fc.VerifiedClaims, "contradictions": len(fc.Contradictions)})
			state.Findings = append(state.Findings, fc.AsFinding())
		}
	}

	c.reportProgress("Synthesizing research findings...", 0.8)
	synthesis, err := c.planner.Synthesize(ctx, state.Findings, objective)
	if err != nil {
		if ctx.Err() != nil {
			c.failSession(sessionID, ctx.Err().Error())
			return nil, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("synthesis failed: %v", err))
		c.logger.Error("Synthesis failed", "error", err)
	}

	c.reportProgress("Compiling final report...", 0.9)
	rep := Compile(CompileInput{
		SessionID:    sessionID,
		Objective:    objective,
		Plan:         plan,
		State:        state,
		Synthesis:    synthesis,
		Started:      start,
		PlannerCost:  c.planner.Cost(),
		ThresholdMet: thresholdMet,
		Warnings:     warnings,
	})

	c.completeSession(ctx, sessionID, rep)
	c.reportProgress("Research complete!", 1.0)
	return rep, nil
}

// buildPlan asks the planner for angles and falls back to a fixed generic
// set when planning fails or parses to nothing.
func (c *Crew) buildPlan(ctx context.Context, objective string) *ResearchPlan {
	plan, err := c.planner.Plan(ctx, objective)
	if err != nil || plan == nil || len(plan.Angles) == 0 {
		if err != nil {
			c.logger.Warn("Planning failed, using fallback angles", "error", err)
		} else {
			c.logger.Warn("Planner returned no usable angles, using fallback set")
		}
		return &ResearchPlan{
			Objective: objective,
			Plan:      "Fallback plan: cover the objective from generic angles.",
			Angles:    append([]string(nil), fallbackAngles...),
		}
	}
	return plan
}

// deriveTargeted builds at most two follow-up work items from a quality
// report: one per missing aspect, or a single generic item from the
// free-text improvement notes.
func deriveTargeted(q QualityReport, round int) []WorkItem {
	var items []WorkItem
	for _, aspect := range q.MissingAspects {
		if len(items) >= 2 {
			break
		}
		aspect = strings.TrimSpace(aspect)
		if aspect == "" {
			continue
		}
		items = append(items, WorkItem{
			ID:          shortID(),
			Description: "Specific investigation: " + aspect,
			Round:       round,
		})
	}

	if len(items) == 0 && strings.TrimSpace(q.Improvements) != "" {
		items = append(items, WorkItem{
			ID:          shortID(),
			Description: "Additional research based on: " + truncate(q.Improvements, 100) + "...",
			Round:       round,
		})
	}
	return items
}

func (c *Crew) createSession(ctx context.Context, objective string, plan *ResearchPlan, warnings *[]string) string {
	if c.store == nil {
		return ""
	}
	id, err := c.store.CreateSession(ctx, objective, plan)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("failed to create session: %v", err))
		c.logger.Warn("Failed to create session", "error", err)
		return ""
	}
	return id
}

func (c *Crew) persistFindings(ctx context.Context, sessionID string, findings []Finding, warnings *[]string) {
	if c.store == nil || sessionID == "" {
		return
	}
	for _, f := range findings {
		if err := c.store.SaveFinding(ctx, sessionID, f); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("failed to persist finding %q: %v", f.Angle, err))
			c.logger.Warn("Failed to persist finding", "angle", f.Angle, "error", err)
		}
	}
}

func (c *Crew) completeSession(ctx context.Context, sessionID string, rep *Report) {
	if c.store == nil || sessionID == "" {
		return
	}
	if err := c.store.CompleteSession(ctx, sessionID, rep); err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("failed to complete session: %v", err))
		c.logger.Warn("Failed to complete session", "error", err)
	}
}

func (c *Crew) failSession(sessionID, reason string) {
	if c.store == nil || sessionID == "" {
		return
	}
	sf, ok := c.store.(sessionFailer)
	if !ok {
		return
	}
	// The run context is already cancelled here, so use a fresh one.
	if err := sf.FailSession(context.Background(), sessionID, reason); err != nil {
		c.logger.Warn("Failed to mark session as failed", "session_id", sessionID, "error", err)
	}
}

func (c *Crew) reportProgress(status string, fraction float64) {
	if c.progress != nil {
		c.progress(status, fraction)
	}
}

func shortID() string {
	return uuid.New().String()[:8]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package crew

import (
	"fmt"
	"strings"
	"time"
)

// CompileInput gathers everything the loop accumulated for the final
// report.
type CompileInput struct {
	SessionID    string
	Objective    string
	Plan         *ResearchPlan
	State        RoundState
	Synthesis    string
	Started      time.Time
	PlannerCost  float64
	ThresholdMet bool
	Warnings     []string
}

// Compile assembles the terminal report. It is pure: all judgment has
// already happened by the time it runs.
func Compile(in CompileInput) *Report {
	stats := Statistics{PlannerCost: in.PlannerCost}
	for _, f := range in.State.Findings {
		stats.TotalSearches += f.Searches
		stats.TotalCost += f.Cost
		if f.Err {
			stats.ErrorFindings++
		} else {
			stats.NumResearchers++
		}
	}
	stats.TotalCost += in.PlannerCost

	warnings := append([]string(nil), in.Warnings...)
	if stats.ErrorFindings > 0 && stats.ErrorFindings >= stats.NumResearchers {
		warnings = append(warnings, fmt.Sprintf(
			"reduced confidence: %d of %d research angles failed",
			stats.ErrorFindings, stats.ErrorFindings+stats.NumResearchers))
	}

	var plan string
	var angles []string
	if in.Plan != nil {
		plan = in.Plan.Plan
		angles = in.Plan.Angles
	}

	return &Report{
		SessionID:    in.SessionID,
		Objective:    in.Objective,
		Timestamp:    in.Started,
		Duration:     time.Since(in.Started).Seconds(),
		Plan:         plan,
		Angles:       angles,
		Findings:     in.State.Findings,
		Synthesis:    in.Synthesis,
		Rounds:       in.State.Round,
		FinalQuality: in.State.Quality.Overall(),
		ThresholdMet: in.ThresholdMet,
		Statistics:   stats,
		Warnings:     warnings,
	}
}

// Markdown renders the report for files and terminals.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n\n", r.Objective)
	fmt.Fprintf(&b, "**Date:** %s\n\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Duration:** %.1fs | **Rounds:** %d | **Quality:** %.1f/100",
		r.Duration, r.Rounds, r.FinalQuality)
	if !r.ThresholdMet {
		b.WriteString(" (threshold not met)")
	}
	b.WriteString("\n\n")

	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if r.Synthesis != "" {
		b.WriteString("## Synthesis\n\n")
		b.WriteString(r.Synthesis)
		b.WriteString("\n\n")
	}

	b.WriteString("## Research Angles\n\n")
	for i, a := range r.Angles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\n## Detailed Findings\n\n")
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "### %s\n\n", f.Angle)
		if f.Err {
			fmt.Fprintf(&b, "_This angle failed:_ %s\n\n", f.Text)
			continue
		}
		b.WriteString(f.Text)
		b.WriteString("\n\n")
		if len(f.Sources) > 0 {
			b.WriteString("**Sources:**\n")
			for _, s := range f.Sources {
				fmt.Fprintf(&b, "- [%s](%s) (%s, %.2f)\n", s.Title, s.URL, s.Domain, s.Score)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- Researchers deployed: %d\n", r.Statistics.NumResearchers)
	fmt.Fprintf(&b, "- Searches performed: %d\n", r.Statistics.TotalSearches)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n", r.Statistics.TotalCost)
	if r.Statistics.ErrorFindings > 0 {
		fmt.Fprintf(&b, "- Failed angles: %d\n", r.Statistics.ErrorFindings)
	}
	return b.String()
}

package crew

import (
	"time"
)

// Config holds the tunables for a research run.
type Config struct {
	MaxRounds        int           // hard stop for the quality loop
	QualityThreshold float64       // inclusive: overall >= threshold terminates
	MaxResearchers   int           // breadth of the first round
	MaxParallel      int           // cap on concurrent work units
	ItemTimeout      time.Duration // per-unit deadline inside the pool
	EnableQuality    bool
	EnableFactCheck  bool
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRounds:        3,
		QualityThreshold: 75,
		MaxResearchers:   4,
		MaxParallel:      4,
		ItemTimeout:      3 * time.Minute,
		EnableQuality:    true,
		EnableFactCheck:  true,
	}
}

// WorkItem is one research angle submitted to the worker pool.
type WorkItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Round       int    `json:"round"`
}

// Source is a single reference backing a finding. Sources are owned by
// exactly one finding; aggregate views deduplicate by URL keeping the
// highest-scoring copy.
type Source struct {
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Domain string  `json:"domain"`
	Score  float64 `json:"score"`
}

// QueryDetail records one search executed while producing a finding.
type QueryDetail struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
	FromCache  bool   `json:"from_cache"`
}

// Finding is the immutable result of executing one work item. Error
// findings stay in the accumulated set so partial failures remain visible
// in the final report.
type Finding struct {
	ItemID       string        `json:"item_id"`
	Angle        string        `json:"angle"`
	Text         string        `json:"findings"`
	Sources      []Source      `json:"sources,omitempty"`
	QueryDetails []QueryDetail `json:"query_details,omitempty"`
	Searches     int           `json:"searches_performed"`
	Cost         float64       `json:"total_cost"`
	Err          bool          `json:"error,omitempty"`
}

// QualityReport is produced once per round from the full accumulated
// finding set. Overall is always the mean of completeness and accuracy.
type QualityReport struct {
	Completeness   float64  `json:"completeness_score"`
	Accuracy       float64  `json:"accuracy_score"`
	Confidence     float64  `json:"confidence"`
	MissingAspects []string `json:"missing_aspects"`
	Contradictions string   `json:"contradictions"`
	Improvements   string   `json:"improvements"`
	Evaluation     string   `json:"evaluation"`
}

// Overall is the single quality score the loop gates on.
func (r QualityReport) Overall() float64 {
	return (r.Completeness + r.Accuracy) / 2
}

// RoundState is an immutable snapshot of the loop after one round. Each
// round derives a new state from the previous by unioning new findings;
// the finding set only ever grows.
type RoundState struct {
	Round    int           `json:"round"`
	Findings []Finding     `json:"findings"`
	Quality  QualityReport `json:"quality"`
	Done     bool          `json:"done"`
}

// ResearchPlan is the planner's output for round zero.
type ResearchPlan struct {
	Objective string   `json:"query"`
	Plan      string   `json:"plan"`
	Angles    []string `json:"research_angles"`
}

// Statistics aggregates resource counters for the final report.
type Statistics struct {
	NumResearchers int     `json:"num_researchers"`
	TotalSearches  int     `json:"total_searches"`
	TotalCost      float64 `json:"total_cost"`
	PlannerCost    float64 `json:"lead_researcher_cost"`
	ErrorFindings  int     `json:"error_findings"`
}

// Report is the terminal output of a research run.
type Report struct {
	SessionID    string     `json:"session_id,omitempty"`
	Objective    string     `json:"query"`
	Timestamp    time.Time  `json:"timestamp"`
	Duration     float64    `json:"duration_seconds"`
	Plan         string     `json:"research_plan"`
	Angles       []string   `json:"research_angles"`
	Findings     []Finding  `json:"findings"`
	Synthesis    string     `json:"synthesis"`
	Rounds       int        `json:"rounds"`
	FinalQuality float64    `json:"final_quality"`
	ThresholdMet bool       `json:"threshold_met"`
	Statistics   Statistics `json:"statistics"`
	Warnings     []string   `json:"warnings,omitempty"`
}

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pbellamy/research-crew/pkg/crew"
)

// SessionStore persists research sessions, findings, sources, and
// executed queries. It implements the orchestrator's Store interface.
type SessionStore struct {
	db *PostgresDB
}

// NewSessionStore wraps a database handle.
func NewSessionStore(db *PostgresDB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession records a new research run and returns its id.
func (s *SessionStore) CreateSession(ctx context.Context, objective string, plan *crew.ResearchPlan) (string, error) {
	var planText string
	var angles []string
	if plan != nil {
		planText = plan.Plan
		angles = plan.Angles
	}
	anglesJSON, err := json.Marshal(angles)
	if err != nil {
		return "", fmt.Errorf("failed to marshal angles: %w", err)
	}

	var id string
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO research_sessions (query, plan, angles)
		VALUES ($1, $2, $3)
		RETURNING id
	`, objective, planText, anglesJSON).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// SaveFinding stores one finding with its sources and executed queries.
func (s *SessionStore) SaveFinding(ctx context.Context, sessionID string, f crew.Finding) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var findingID int
	err = tx.QueryRow(ctx, `
		INSERT INTO research_findings (session_id, item_id, angle, findings, is_error, searches_performed, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, sessionID, f.ItemID, f.Angle, f.Text, f.Err, f.Searches, f.Cost).Scan(&findingID)
	if err != nil {
		return fmt.Errorf("failed to insert finding: %w", err)
	}

	for _, src := range f.Sources {
		_, err = tx.Exec(ctx, `
			INSERT INTO research_sources (finding_id, title, url, domain, score)
			VALUES ($1, $2, $3, $4, $5)
		`, findingID, src.Title, src.URL, src.Domain, src.Score)
		if err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}

	for _, q := range f.QueryDetails {
		_, err = tx.Exec(ctx, `
			INSERT INTO search_queries (finding_id, query, num_results, from_cache)
			VALUES ($1, $2, $3, $4)
		`, findingID, q.Query, q.NumResults, q.FromCache)
		if err != nil {
			return fmt.Errorf("failed to insert search query: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FailSession marks an aborted run so the row does not stay 'running'.
func (s *SessionStore) FailSession(ctx context.Context, sessionID string, reason string) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE research_sessions
		SET status = 'failed', error = $2, completed_at = NOW()
		WHERE id = $1
	`, sessionID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark session failed: %w", err)
	}
	return nil
}

// CompleteSession writes the final report summary onto the session row.
func (s *SessionStore) CompleteSession(ctx context.Context, sessionID string, rep *crew.Report) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE research_sessions
		SET status = 'completed',
		    rounds = $2,
		    final_quality = $3,
		    threshold_met = $4,
		    synthesis = $5,
		    total_cost = $6,
		    total_searches = $7,
		    completed_at = NOW()
		WHERE id = $1
	`, sessionID, rep.Rounds, rep.FinalQuality, rep.ThresholdMet, rep.Synthesis,
		rep.Statistics.TotalCost, rep.Statistics.TotalSearches)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

// SessionSummary is one row of the session history listing.
type SessionSummary struct {
	ID            string     `json:"id"`
	Query         string     `json:"query"`
	Status        string     `json:"status"`
	Rounds        int        `json:"rounds"`
	FinalQuality  *float64   `json:"final_quality"`
	ThresholdMet  bool       `json:"threshold_met"`
	TotalCost     float64    `json:"total_cost"`
	TotalSearches int        `json:"total_searches"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// RecentSessions lists the newest sessions first.
func (s *SessionStore) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, query, status, rounds, final_quality, threshold_met,
		       total_cost, total_searches, created_at, completed_at
		FROM research_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.ID, &ss.Query, &ss.Status, &ss.Rounds, &ss.FinalQuality,
			&ss.ThresholdMet, &ss.TotalCost, &ss.TotalSearches, &ss.CreatedAt, &ss.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

// SessionDetail is a full session with its findings and their sources.
type SessionDetail struct {
	SessionSummary
	Plan      string         `json:"plan"`
	Angles    []string       `json:"angles"`
	Synthesis string         `json:"synthesis"`
	Error     *string        `json:"error,omitempty"`
	Findings  []crew.Finding `json:"findings"`
}

// SessionDetails loads one session with all of its findings, sources, and
// executed queries.
func (s *SessionStore) SessionDetails(ctx context.Context, sessionID string) (*SessionDetail, error) {
	d := &SessionDetail{}
	var anglesJSON []byte
	var plan, synthesis *string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, query, status, rounds, final_quality, threshold_met,
		       total_cost, total_searches, created_at, completed_at,
		       plan, angles, synthesis, error
		FROM research_sessions
		WHERE id = $1
	`, sessionID).Scan(&d.ID, &d.Query, &d.Status, &d.Rounds, &d.FinalQuality,
		&d.ThresholdMet, &d.TotalCost, &d.TotalSearches, &d.CreatedAt, &d.CompletedAt,
		&plan, &anglesJSON, &synthesis, &d.Error)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if plan != nil {
		d.Plan = *plan
	}
	if synthesis != nil {
		d.Synthesis = *synthesis
	}
	if len(anglesJSON) > 0 {
		if err := json.Unmarshal(anglesJSON, &d.Angles); err != nil {
			return nil, fmt.Errorf("failed to decode angles: %w", err)
		}
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, item_id, angle, findings, is_error, searches_performed, cost
		FROM research_findings
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings: %w", err)
	}
	defer rows.Close()

	findingIDs := make(map[int]int) // db id -> index into d.Findings
	for rows.Next() {
		var id int
		var f crew.Finding
		var text *string
		if err := rows.Scan(&id, &f.ItemID, &f.Angle, &text, &f.Err, &f.Searches, &f.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		if text != nil {
			f.Text = *text
		}
		findingIDs[id] = len(d.Findings)
		d.Findings = append(d.Findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := s.db.Pool.Query(ctx, `
		SELECT s.finding_id, s.title, s.url, s.domain, s.score
		FROM research_sources s
		JOIN research_findings f ON f.id = s.finding_id
		WHERE f.session_id = $1
		ORDER BY s.id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	defer srcRows.Close()

	for srcRows.Next() {
		var findingID int
		var src crew.Source
		if err := srcRows.Scan(&findingID, &src.Title, &src.URL, &src.Domain, &src.Score); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if idx, ok := findingIDs[findingID]; ok {
			d.Findings[idx].Sources = append(d.Findings[idx].Sources, src)
		}
	}
	return d, srcRows.Err()
}

// AggregateStats summarizes all sessions ever run.
type AggregateStats struct {
	TotalSessions     int     `json:"total_sessions"`
	CompletedSessions int     `json:"completed_sessions"`
	FailedSessions    int     `json:"failed_sessions"`
	AvgQuality        float64 `json:"avg_quality"`
	AvgRounds         float64 `json:"avg_rounds"`
	TotalCost         float64 `json:"total_cost"`
	TotalSearches     int     `json:"total_searches"`
}

// Stats aggregates over the session history. Averages cover completed
// sessions only.
func (s *SessionStore) Stats(ctx context.Context) (*AggregateStats, error) {
	st := &AggregateStats{}
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COALESCE(AVG(final_quality) FILTER (WHERE status = 'completed'), 0),
		       COALESCE(AVG(rounds) FILTER (WHERE status = 'completed'), 0),
		       COALESCE(SUM(total_cost), 0),
		       COALESCE(SUM(total_searches), 0)
		FROM research_sessions
	`).Scan(&st.TotalSessions, &st.CompletedSessions, &st.FailedSessions,
		&st.AvgQuality, &st.AvgRounds, &st.TotalCost, &st.TotalSearches)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate session stats: %w", err)
	}
	return st, nil
}

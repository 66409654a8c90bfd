package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Research Jobs Table (API-facing job queue)
	jobsQuery := `
		CREATE TABLE IF NOT EXISTS research_jobs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			topic TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			config JSONB,
			report JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, jobsQuery); err != nil {
		return fmt.Errorf("failed to create research_jobs table: %w", err)
	}

	// 2. Research Sessions Table (one row per orchestration run)
	sessionsQuery := `
		CREATE TABLE IF NOT EXISTS research_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			query TEXT NOT NULL,
			plan TEXT,
			angles JSONB,
			status TEXT NOT NULL DEFAULT 'running',
			rounds INTEGER DEFAULT 0,
			final_quality DOUBLE PRECISION,
			threshold_met BOOLEAN DEFAULT FALSE,
			synthesis TEXT,
			total_cost DOUBLE PRECISION DEFAULT 0,
			total_searches INTEGER DEFAULT 0,
			error TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		);
	`
	if _, err := db.Pool.Exec(ctx, sessionsQuery); err != nil {
		return fmt.Errorf("failed to create research_sessions table: %w", err)
	}

	// 3. Research Findings Table
	findingsQuery := `
		CREATE TABLE IF NOT EXISTS research_findings (
			id SERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES research_sessions(id) ON DELETE CASCADE,
			item_id TEXT,
			angle TEXT NOT NULL,
			findings TEXT,
			is_error BOOLEAN DEFAULT FALSE,
			searches_performed INTEGER DEFAULT 0,
			cost DOUBLE PRECISION DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, findingsQuery); err != nil {
		return fmt.Errorf("failed to create research_findings table: %w", err)
	}

	// 4. Research Sources Table
	sourcesQuery := `
		CREATE TABLE IF NOT EXISTS research_sources (
			id SERIAL PRIMARY KEY,
			finding_id INTEGER NOT NULL REFERENCES research_findings(id) ON DELETE CASCADE,
			title TEXT,
			url TEXT,
			domain TEXT,
			score DOUBLE PRECISION
		);
	`
	if _, err := db.Pool.Exec(ctx, sourcesQuery); err != nil {
		return fmt.Errorf("failed to create research_sources table: %w", err)
	}

	// 5. Search Queries Table
	queriesQuery := `
		CREATE TABLE IF NOT EXISTS search_queries (
			id SERIAL PRIMARY KEY,
			finding_id INTEGER NOT NULL REFERENCES research_findings(id) ON DELETE CASCADE,
			query TEXT NOT NULL,
			num_results INTEGER DEFAULT 0,
			from_cache BOOLEAN DEFAULT FALSE
		);
	`
	if _, err := db.Pool.Exec(ctx, queriesQuery); err != nil {
		return fmt.Errorf("failed to create search_queries table: %w", err)
	}

	// 6. Research Logs Table (structured log sink)
	logsQuery := `
		CREATE TABLE IF NOT EXISTS research_logs (
			id SERIAL PRIMARY KEY,
			job_id UUID,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create research_logs table: %w", err)
	}

	// Indexes for faster querying
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_research_jobs_created_at ON research_jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_research_sessions_created_at ON research_sessions(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_research_findings_session_id ON research_findings(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_research_sources_finding_id ON research_sources(finding_id)",
		"CREATE INDEX IF NOT EXISTS idx_search_queries_finding_id ON search_queries(finding_id)",
		"CREATE INDEX IF NOT EXISTS idx_research_logs_job_id ON research_logs(job_id)",
	}
	for _, q := range indexes {
		if _, err := db.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

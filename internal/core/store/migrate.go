package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rate_limits (
		service TEXT PRIMARY KEY,
		minute_window TEXT NOT NULL DEFAULT '[]',
		hour_window TEXT NOT NULL DEFAULT '[]',
		day_window TEXT NOT NULL DEFAULT '[]',
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_failure_at INTEGER,
		saved_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS analysis_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		model TEXT NOT NULL,
		result_json TEXT NOT NULL,
		tweet_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		UNIQUE(username, model)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires ON analysis_cache(expires_at);`,
	`CREATE TABLE IF NOT EXISTS tweet_cache (
		username TEXT PRIMARY KEY,
		sample_json TEXT NOT NULL,
		tweet_count INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tweet_cache_expires ON tweet_cache(expires_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/core"
)

// GetCachedAnalysis returns a cached analysis result for a username and
// model if one exists and has not expired.
func (s *Store) GetCachedAnalysis(ctx context.Context, username, model string) (*core.MBTIResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	username = normalizeUsername(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	var resultJSON string

	row := s.DB.QueryRowContext(ctx, `
		SELECT result_json
		FROM analysis_cache
		WHERE username = ? AND model = ? AND expires_at > ?
	`, username, model, time.Now().UTC().UnixMilli())

	if err := row.Scan(&resultJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached analysis: %w", err)
	}

	var result core.MBTIResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("decode cached analysis: %w", err)
	}

	return &result, nil
}

// SetCachedAnalysis stores an analysis result with a TTL. Zero or negative
// TTL disables caching for the call.
func (s *Store) SetCachedAnalysis(ctx context.Context, result *core.MBTIResult, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || result == nil {
		return nil
	}

	username := normalizeUsername(result.Username)
	if username == "" {
		return errors.New("username is required")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached analysis: %w", err)
	}

	now := time.Now().UTC()

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO analysis_cache (username, model, result_json, tweet_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, model) DO UPDATE SET
			result_json = excluded.result_json,
			tweet_count = excluded.tweet_count,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, username, result.Model, string(resultJSON), result.TweetCount, now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("store cached analysis: %w", err)
	}

	return nil
}

// PruneExpired removes expired analysis and tweet cache rows.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().UnixMilli()
	var total int64
	for _, table := range []string{"analysis_cache", "tweet_cache"} {
		result, err := s.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE expires_at <= ?", table), now)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		total += affected
	}
	return total, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

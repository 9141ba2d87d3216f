package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/personalens/personalens/internal/core"
)

// GetCachedSample returns a cached tweet sample for a username if it has
// not expired. A fresh sample avoids a scraper run entirely.
func (s *Store) GetCachedSample(ctx context.Context, username string) (*core.TweetSample, error) {
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

	var sampleJSON string

	row := s.DB.QueryRowContext(ctx, `
		SELECT sample_json
		FROM tweet_cache
		WHERE username = ? AND expires_at > ?
	`, username, time.Now().UTC().UnixMilli())

	if err := row.Scan(&sampleJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached sample: %w", err)
	}

	var sample core.TweetSample
	if err := json.Unmarshal([]byte(sampleJSON), &sample); err != nil {
		return nil, fmt.Errorf("decode cached sample: %w", err)
	}

	return &sample, nil
}

// SetCachedSample stores a tweet sample with a TTL.
func (s *Store) SetCachedSample(ctx context.Context, sample *core.TweetSample, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || sample == nil {
		return nil
	}

	username := normalizeUsername(sample.Username)
	if username == "" {
		return errors.New("username is required")
	}

	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encode cached sample: %w", err)
	}

	now := time.Now().UTC()

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO tweet_cache (username, sample_json, tweet_count, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			sample_json = excluded.sample_json,
			tweet_count = excluded.tweet_count,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, username, string(sampleJSON), sample.Total(), now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("store cached sample: %w", err)
	}

	return nil
}

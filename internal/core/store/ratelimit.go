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

// GetLimiterSnapshot returns the stored limiter state for a service, or nil
// when none has been saved.
func (s *Store) GetLimiterSnapshot(ctx context.Context, service string) (*core.LimiterSnapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.New("service is required")
	}

	var (
		minuteJSON    string
		hourJSON      string
		dayJSON       string
		failures      int
		lastFailureAt sql.NullInt64
		savedAt       int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT minute_window, hour_window, day_window, consecutive_failures, last_failure_at, saved_at
		FROM rate_limits
		WHERE service = ?
	`, service)

	if err := row.Scan(&minuteJSON, &hourJSON, &dayJSON, &failures, &lastFailureAt, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch limiter snapshot: %w", err)
	}

	snap := &core.LimiterSnapshot{
		Service:             service,
		ConsecutiveFailures: failures,
		SavedAt:             time.UnixMilli(savedAt).UTC(),
	}

	var err error
	if snap.Minute, err = decodeWindow(minuteJSON); err != nil {
		return nil, fmt.Errorf("decode minute window: %w", err)
	}
	if snap.Hour, err = decodeWindow(hourJSON); err != nil {
		return nil, fmt.Errorf("decode hour window: %w", err)
	}
	if snap.Day, err = decodeWindow(dayJSON); err != nil {
		return nil, fmt.Errorf("decode day window: %w", err)
	}

	if lastFailureAt.Valid {
		value := time.UnixMilli(lastFailureAt.Int64).UTC()
		snap.LastFailureAt = &value
	}

	return snap, nil
}

// SaveLimiterSnapshot persists limiter state for a service, replacing any
// earlier snapshot.
func (s *Store) SaveLimiterSnapshot(ctx context.Context, snap *core.LimiterSnapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if snap == nil {
		return errors.New("limiter snapshot is required")
	}
	service := strings.TrimSpace(snap.Service)
	if service == "" {
		return errors.New("service is required")
	}

	minuteJSON, err := encodeWindow(snap.Minute)
	if err != nil {
		return fmt.Errorf("encode minute window: %w", err)
	}
	hourJSON, err := encodeWindow(snap.Hour)
	if err != nil {
		return fmt.Errorf("encode hour window: %w", err)
	}
	dayJSON, err := encodeWindow(snap.Day)
	if err != nil {
		return fmt.Errorf("encode day window: %w", err)
	}

	var lastFailureAt sql.NullInt64
	if snap.LastFailureAt != nil {
		lastFailureAt = sql.NullInt64{Int64: snap.LastFailureAt.UTC().UnixMilli(), Valid: true}
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (service, minute_window, hour_window, day_window, consecutive_failures, last_failure_at, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			minute_window = excluded.minute_window,
			hour_window = excluded.hour_window,
			day_window = excluded.day_window,
			consecutive_failures = excluded.consecutive_failures,
			last_failure_at = excluded.last_failure_at,
			saved_at = excluded.saved_at
	`, service, minuteJSON, hourJSON, dayJSON, snap.ConsecutiveFailures, lastFailureAt, savedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store limiter snapshot: %w", err)
	}

	return nil
}

// Windows are stored as JSON arrays of unix milliseconds. Millisecond
// precision keeps sub-second request bursts distinguishable on restore.
func encodeWindow(stamps []time.Time) (string, error) {
	millis := make([]int64, 0, len(stamps))
	for _, ts := range stamps {
		millis = append(millis, ts.UTC().UnixMilli())
	}
	encoded, err := json.Marshal(millis)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeWindow(encoded string) ([]time.Time, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	var millis []int64
	if err := json.Unmarshal([]byte(encoded), &millis); err != nil {
		return nil, err
	}
	if len(millis) == 0 {
		return nil, nil
	}
	stamps := make([]time.Time, 0, len(millis))
	for _, ms := range millis {
		stamps = append(stamps, time.UnixMilli(ms).UTC())
	}
	return stamps, nil
}

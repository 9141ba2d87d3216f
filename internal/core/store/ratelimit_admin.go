package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/core"
)

// ServiceQuery selects stored limiter snapshots for the rate-limit admin
// commands. Exactly one of All, Service, or Prefix must be set.
type ServiceQuery struct {
	All     bool
	Service string
	Prefix  string
}

func (q ServiceQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Service) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --service, or --prefix")
}

func (q ServiceQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if service := strings.TrimSpace(q.Service); service != "" {
		return "WHERE service = ?", []any{service}, nil
	}
	prefix := strings.TrimSpace(q.Prefix)
	if prefix == "" {
		return "", nil, errors.New("prefix is required")
	}
	return "WHERE service LIKE ?", []any{prefix + "%"}, nil
}

// ListLimiterSnapshots returns stored limiter state for every matching
// service, ordered by service name.
func (s *Store) ListLimiterSnapshots(ctx context.Context, q ServiceQuery) ([]core.LimiterSnapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT service, minute_window, hour_window, day_window, consecutive_failures, last_failure_at, saved_at
		FROM rate_limits
		%s
		ORDER BY service
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list limiter snapshots: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	snapshots := []core.LimiterSnapshot{}
	for rows.Next() {
		var (
			service       string
			minuteJSON    string
			hourJSON      string
			dayJSON       string
			failures      int
			lastFailureAt sql.NullInt64
			savedAt       int64
		)
		if err := rows.Scan(&service, &minuteJSON, &hourJSON, &dayJSON, &failures, &lastFailureAt, &savedAt); err != nil {
			return nil, fmt.Errorf("scan limiter snapshots: %w", err)
		}

		snap := core.LimiterSnapshot{
			Service:             service,
			ConsecutiveFailures: failures,
			SavedAt:             time.UnixMilli(savedAt).UTC(),
		}
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

		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list limiter snapshots: %w", err)
	}

	return snapshots, nil
}

// CountLimiterSnapshots returns how many stored snapshots match the query.
func (s *Store) CountLimiterSnapshots(ctx context.Context, q ServiceQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM rate_limits
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count limiter snapshots: %w", err)
	}
	return count, nil
}

// ResetLimiterSnapshots deletes matching snapshots and returns the number
// removed. Fresh limiters start with empty windows on the next run.
func (s *Store) ResetLimiterSnapshots(ctx context.Context, q ServiceQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM rate_limits
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset limiter snapshots: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset limiter snapshots: %w", err)
	}
	return affected, nil
}

package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/core/engine"
)

// FormatStats renders limiter statistics in the requested format.
func FormatStats(format Format, stats []engine.Stats) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Service", "Window", "Used", "Limit", "Remaining", "Failures", "Backoff"})

	for _, s := range stats {
		for i, w := range s.Windows {
			service, failures, backoff := "", "", ""
			if i == 0 {
				service = s.Service
				failures = fmt.Sprintf("%d", s.ConsecutiveFailures)
				backoff = formatWait(s.BackoffWait)
			}
			t.AppendRow(table.Row{
				service,
				w.Granularity,
				w.Used,
				w.Limit,
				w.Remaining,
				failures,
				backoff,
			})
		}
	}

	return t.Render(), nil
}

// FormatSnapshots renders persisted limiter snapshots, one row per
// service, for the rate-limit list command.
func FormatSnapshots(format Format, snapshots []core.LimiterSnapshot) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(snapshots, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Service", "Minute", "Hour", "Day", "Failures", "Last Failure", "Saved"})

	for _, snap := range snapshots {
		lastFailure := "-"
		if snap.LastFailureAt != nil {
			lastFailure = snap.LastFailureAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{
			snap.Service,
			len(snap.Minute),
			len(snap.Hour),
			len(snap.Day),
			snap.ConsecutiveFailures,
			lastFailure,
			snap.SavedAt.Local().Format(time.DateTime),
		})
	}

	return t.Render(), nil
}

func formatWait(wait time.Duration) string {
	if wait <= 0 {
		return "-"
	}
	return strings.TrimSpace(wait.Round(time.Millisecond).String())
}

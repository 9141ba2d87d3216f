package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/personalens/personalens/internal/core"
)

// FormatResult renders an analysis result in the requested format.
func FormatResult(format Format, result *core.MBTIResult) (string, error) {
	if result == nil {
		return "", nil
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatMarkdown:
		return resultMarkdown(result), nil
	default:
		return resultTable(result), nil
	}
}

func resultTable(result *core.MBTIResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Dimension", "Tendency", "Strength", "Evidence"})

	for _, axis := range result.Axes {
		t.AppendRow(table.Row{
			axis.Dimension,
			axis.Value,
			fmt.Sprintf("%d%%", axis.Percent),
			truncate(axis.Evidence, 60),
		})
	}

	t.AppendFooter(table.Row{
		"",
		result.Type,
		fmt.Sprintf("%.0f%% confidence", result.Confidence*100),
		fmt.Sprintf("%d tweets via %s", result.TweetCount, result.Model),
	})

	rendered := t.Render()
	if result.Summary != "" {
		rendered += "\n\n" + result.Summary
	}
	return rendered
}

func resultMarkdown(result *core.MBTIResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## @%s: %s\n\n", result.Username, result.Type)
	if result.Summary != "" {
		b.WriteString(result.Summary + "\n\n")
	}

	b.WriteString("| Dimension | Tendency | Strength |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, axis := range result.Axes {
		fmt.Fprintf(&b, "| %s | %s | %d%% |\n", axis.Dimension, axis.Value, axis.Percent)
	}

	fmt.Fprintf(&b, "\n_%d tweets analyzed with %s, confidence %.0f%%._\n",
		result.TweetCount, result.Model, result.Confidence*100)

	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// Package report renders analysis results as terminal-styled HTML and
// exports them to PNG via a scoped browser page.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/core"
	apperrors "github.com/personalens/personalens/internal/errors"
)

// Generator writes HTML reports into OutputDir.
type Generator struct {
	OutputDir string
}

// templateContext is the data handed to the report template.
type templateContext struct {
	Username      string
	DisplayName   string
	Type          string
	Description   string
	AsciiArt      string
	Axes          []core.AxisScore
	Summary       string
	Model         string
	TweetCount    int
	OriginalCount int
	ReplyCount    int
	GeneratedAt   string
}

// Generate renders the HTML report for a result and returns its path.
// The sample provides the original/reply split and the display name.
func (g *Generator) Generate(result *core.MBTIResult, sample *core.TweetSample) (string, error) {
	if result == nil {
		return "", apperrors.EmptyResult("", "", "an analysis result is required")
	}

	outDir := g.OutputDir
	if outDir == "" {
		outDir = "reports"
	}
	// #nosec G301 -- reports are user-facing artifacts
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	ctx := templateContext{
		Username:    result.Username,
		Type:        strings.ToUpper(result.Type),
		Description: typeDescription(result.Type),
		AsciiArt:    asciiArt(result.Type),
		Axes:        result.Axes,
		Summary:     result.Summary,
		Model:       result.Model,
		TweetCount:  result.TweetCount,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	if sample != nil {
		ctx.OriginalCount = len(sample.Originals)
		ctx.ReplyCount = len(sample.Replies)
		ctx.DisplayName = displayName(sample)
	}

	var rendered bytes.Buffer
	if err := reportTemplate.Execute(&rendered, ctx); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("mbti_report_%s_%s.html", result.Username, time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(outDir, filename)
	if err := os.WriteFile(outputPath, rendered.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return outputPath, nil
}

// displayName extracts the user's display name from the first tweet that
// carries one.
func displayName(sample *core.TweetSample) string {
	for _, t := range sample.Originals {
		if t.AuthorName != "" {
			return t.AuthorName
		}
	}
	for _, t := range sample.Replies {
		if t.AuthorName != "" {
			return t.AuthorName
		}
	}
	return ""
}

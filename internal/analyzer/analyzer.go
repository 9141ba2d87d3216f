package analyzer

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/core/engine"
	apperrors "github.com/personalens/personalens/internal/errors"
)

// Analyzer turns tweet samples into MBTI verdicts.
type Analyzer struct {
	client     *Client
	exec       *engine.Executor
	minTweets  int
	sampleSize int
	logger     *logging.Logger
}

// New builds an analyzer bound to the given registry.
func New(cfg config.AnalyzerConfig, registry *engine.Registry, logger *logging.Logger) *Analyzer {
	minTweets := cfg.MinTweets
	if minTweets <= 0 {
		minTweets = 10
	}
	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = 30
	}

	return &Analyzer{
		client: NewClient(cfg),
		exec: &engine.Executor{
			Registry:   registry,
			Service:    ServiceName,
			MaxRetries: registry.MaxRetries(ServiceName, 3),
			Logger:     logger,
		},
		minTweets:  minTweets,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// Analyze infers the MBTI type for a sample. Samples below the minimum
// tweet count are rejected up front; the model cannot produce a
// meaningful verdict from a handful of posts.
func (a *Analyzer) Analyze(ctx context.Context, sample *core.TweetSample) (*core.MBTIResult, error) {
	if sample == nil || sample.Username == "" {
		return nil, apperrors.EmptyResult(ServiceName, "", "a tweet sample is required")
	}
	if sample.Total() < a.minTweets {
		return nil, apperrors.EmptyResult(ServiceName, sample.Username,
			fmt.Sprintf("only %d tweets available, need at least %d for analysis", sample.Total(), a.minTweets))
	}

	prompt := buildPrompt(sample, a.sampleSize)

	responseText, err := engine.Do(ctx, a.exec, func(ctx context.Context) (string, error) {
		return a.client.generateContent(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	result, err := parseVerdict(responseText, sample.Username)
	if err != nil {
		return nil, err
	}

	result.Model = a.client.Model
	result.TweetCount = sample.Total()

	if a.logger != nil {
		a.logger.Debug("analysis complete",
			zap.String("username", sample.Username),
			zap.String("type", result.Type),
			zap.Float64("confidence", result.Confidence),
		)
	}

	return result, nil
}

// Model reports the configured model identifier.
func (a *Analyzer) Model() string {
	if a == nil || a.client == nil {
		return ""
	}
	return a.client.Model
}

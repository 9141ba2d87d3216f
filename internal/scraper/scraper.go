package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/core/engine"
	apperrors "github.com/personalens/personalens/internal/errors"
)

// fallbackFetchCap bounds the timeline fetch used when advanced search
// comes back short or fails.
const fallbackFetchCap = 300

const (
	sortLatest = "Latest"
)

// Scraper fetches and samples a user's tweets. Every actor call is
// admitted through the shared limiter for the "apify" identity.
type Scraper struct {
	client *Client
	exec   *engine.Executor
	logger *logging.Logger
}

// New builds a scraper bound to the given registry.
func New(cfg config.ScraperConfig, registry *engine.Registry, logger *logging.Logger) *Scraper {
	return &Scraper{
		client: NewClient(cfg),
		exec: &engine.Executor{
			Registry:   registry,
			Service:    ServiceName,
			MaxRetries: registry.MaxRetries(ServiceName, 3),
			Logger:     logger,
		},
		logger: logger,
	}
}

// NormalizeUsername strips the @ prefix and surrounding whitespace.
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// FetchTweets fetches a user's recent timeline and returns normalized
// tweets, pins and all. Used by the scrape command for raw exports.
func (s *Scraper) FetchTweets(ctx context.Context, username string, maxTweets int) ([]core.Tweet, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NotFound(ServiceName, username, "username is required")
	}
	if maxTweets <= 0 {
		maxTweets = 100
	}

	items, err := engine.Do(ctx, s.exec, func(ctx context.Context) ([]rawTweet, error) {
		items, err := s.client.runActor(ctx, userTweetsInput{
			TwitterHandles: []string{username},
			MaxItems:       maxTweets,
			Sort:           sortLatest,
		})
		if err != nil {
			return nil, err
		}
		if err := validateResponse(items, username); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	if err := checkAuthor(items, username); err != nil {
		return nil, err
	}

	tweets := extractTweets(items, time.Now().UTC())
	if len(tweets) == 0 {
		return nil, apperrors.EmptyResult(ServiceName, username, fmt.Sprintf("user @%s has no usable tweets", username))
	}
	return tweets, nil
}

// FetchSample collects up to sampleSize originals and sampleSize replies
// for analysis. Advanced search filters server-side; a short or failed
// search falls back to a plain timeline fetch filtered locally.
func (s *Scraper) FetchSample(ctx context.Context, username string, sampleSize int) (*core.TweetSample, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NotFound(ServiceName, username, "username is required")
	}
	if sampleSize <= 0 {
		sampleSize = 30
	}

	originals, replies, err := s.fetchViaSearch(ctx, username, sampleSize)
	if err != nil {
		kind := apperrors.KindOf(err)
		if kind == apperrors.KindNotFound || kind == apperrors.KindEmptyResult {
			return nil, err
		}
		s.logDebug("search fetch failed, falling back to timeline", username, err)
		originals, replies, err = s.fetchViaTimeline(ctx, username, sampleSize)
		if err != nil {
			return nil, err
		}
	}

	if len(originals) < sampleSize {
		// Top up originals from the timeline when search came back short.
		needed := sampleSize - len(originals)
		extra, _, topErr := s.fetchViaTimeline(ctx, username, needed*2)
		if topErr == nil {
			originals = appendMissing(originals, extra, sampleSize)
		} else {
			s.logDebug("original top-up failed", username, topErr)
		}
	}

	sample := &core.TweetSample{
		Username:  username,
		Originals: capTweets(originals, sampleSize),
		Replies:   capTweets(replies, sampleSize),
		FetchedAt: time.Now().UTC(),
	}
	if sample.Total() == 0 {
		return nil, apperrors.EmptyResult(ServiceName, username, fmt.Sprintf("user @%s has no usable tweets", username))
	}
	return sample, nil
}

func (s *Scraper) fetchViaSearch(ctx context.Context, username string, sampleSize int) ([]core.Tweet, []core.Tweet, error) {
	originalQuery := fmt.Sprintf("from:%s -filter:nativeretweets -filter:replies", username)
	originals, err := s.search(ctx, username, originalQuery, sampleSize)
	if err != nil {
		return nil, nil, err
	}

	replyQuery := fmt.Sprintf("from:%s filter:replies", username)
	replies, err := s.search(ctx, username, replyQuery, sampleSize)
	if err != nil {
		return nil, nil, err
	}

	return filterOriginals(originals), filterReplies(replies), nil
}

func (s *Scraper) search(ctx context.Context, username, query string, maxItems int) ([]core.Tweet, error) {
	items, err := engine.Do(ctx, s.exec, func(ctx context.Context) ([]rawTweet, error) {
		items, err := s.client.runActor(ctx, searchInput{
			SearchTerms: []string{query},
			MaxItems:    maxItems,
			Sort:        sortLatest,
		})
		if err != nil {
			return nil, err
		}
		if err := validateResponse(items, username); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return extractTweets(items, time.Now().UTC()), nil
}

func (s *Scraper) fetchViaTimeline(ctx context.Context, username string, sampleSize int) ([]core.Tweet, []core.Tweet, error) {
	fetch := sampleSize * 4
	if fetch > fallbackFetchCap {
		fetch = fallbackFetchCap
	}

	tweets, err := s.FetchTweets(ctx, username, fetch)
	if err != nil {
		return nil, nil, err
	}

	return filterOriginals(tweets), filterReplies(tweets), nil
}

func (s *Scraper) logDebug(msg, username string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg,
		zap.String("username", username),
		zap.Error(err),
	)
}

func appendMissing(tweets, extra []core.Tweet, limit int) []core.Tweet {
	seen := make(map[string]struct{}, len(tweets))
	for _, t := range tweets {
		seen[t.ID] = struct{}{}
	}
	for _, t := range extra {
		if len(tweets) >= limit {
			break
		}
		if _, dup := seen[t.ID]; dup && t.ID != "" {
			continue
		}
		tweets = append(tweets, t)
		seen[t.ID] = struct{}{}
	}
	return tweets
}

func capTweets(tweets []core.Tweet, limit int) []core.Tweet {
	if len(tweets) > limit {
		return tweets[:limit]
	}
	return tweets
}

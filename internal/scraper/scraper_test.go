package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core/engine"
	apperrors "github.com/personalens/personalens/internal/errors"
)

func newTestScraper(t *testing.T, server *httptest.Server) *Scraper {
	t.Helper()

	registry := engine.NewRegistry(map[string]engine.ServiceSettings{
		ServiceName: {
			Limits:     engine.Limits{Minute: 1000, Hour: 1000, Day: 1000},
			Backoff:    engine.BackoffPolicy{Base: time.Millisecond, Multiplier: 2, Max: 5 * time.Millisecond},
			MaxRetries: 0,
		},
	})

	s := New(config.ScraperConfig{
		BaseURL:  server.URL,
		ActorID:  "apidojo~tweet-scraper",
		APIToken: "test-token",
	}, registry, nil)
	s.client.HTTPClient = server.Client()
	s.exec.JitterMax = time.Millisecond
	return s
}

func tweetItem(id, text, author string, reply bool) map[string]any {
	return map[string]any{
		"id":        id,
		"text":      text,
		"author":    map[string]any{"userName": author, "name": "Test User"},
		"createdAt": "Mon Jan 02 15:04:05 +0000 2023",
		"likeCount": 3,
		"isReply":   reply,
	}
}

func TestFetchTweetsParsesActorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/acts/apidojo~tweet-scraper/run-sync-get-dataset-items", r.URL.Path)
		require.Equal(t, "test-token", r.URL.Query().Get("token"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, []any{"jack"}, payload["twitterHandles"])
		require.Equal(t, "Latest", payload["sort"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			tweetItem("1", "gm", "jack", false),
			tweetItem("2", "@biz yes", "jack", true),
		})
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	tweets, err := s.FetchTweets(context.Background(), "@jack", 10)
	require.NoError(t, err)
	require.Len(t, tweets, 2)
	require.Equal(t, "gm", tweets[0].Text)
	require.Equal(t, "jack", tweets[0].Author)
	require.Equal(t, "Test User", tweets[0].AuthorName)
	require.True(t, tweets[1].IsReply)
}

func TestFetchTweetsUserNotFoundFromErrorItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"error": "User not found: ghost"}})
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	_, err := s.FetchTweets(context.Background(), "ghost", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestFetchTweetsAuthorMismatchIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			tweetItem("1", "unrelated", "someoneelse", false),
		})
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	_, err := s.FetchTweets(context.Background(), "jack", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestFetchTweetsEmptyPayloadIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	_, err := s.FetchTweets(context.Background(), "quiet", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
}

func TestFetchTweetsMapsHTTPStatus(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	_, err := s.FetchTweets(context.Background(), "jack", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))
	require.Equal(t, 1, attempts)
}

func TestFetchSampleSplitsOriginalsAndReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		terms, _ := payload["searchTerms"].([]any)
		require.Len(t, terms, 1)
		query, _ := terms[0].(string)

		var items []map[string]any
		if query == "from:jack -filter:nativeretweets -filter:replies" {
			items = []map[string]any{
				tweetItem("1", "gm", "jack", false),
				tweetItem("2", "shipping", "jack", false),
			}
		} else {
			items = []map[string]any{
				tweetItem("3", "@biz agreed", "jack", true),
			}
		}
		_ = json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	sample, err := s.FetchSample(context.Background(), "jack", 2)
	require.NoError(t, err)
	require.Equal(t, "jack", sample.Username)
	require.Len(t, sample.Originals, 2)
	require.Len(t, sample.Replies, 1)
	require.Equal(t, 3, sample.Total())
}

func TestFetchSampleFallsBackToTimeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		if _, isSearch := payload["searchTerms"]; isSearch {
			// Search path hard-fails; the timeline fallback takes over.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			tweetItem("1", "gm", "jack", false),
			tweetItem("2", "@biz yes", "jack", true),
		})
	}))
	defer server.Close()

	s := newTestScraper(t, server)

	sample, err := s.FetchSample(context.Background(), "jack", 1)
	require.NoError(t, err)
	require.Len(t, sample.Originals, 1)
	require.Len(t, sample.Replies, 1)
}

func TestValidateResponseClassification(t *testing.T) {
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(validateResponse(nil, "jack")))

	err := validateResponse([]rawTweet{{ErrorMessage: "User not found"}}, "jack")
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	err = validateResponse([]rawTweet{{ErrorMessage: "Rate limit exceeded"}}, "jack")
	require.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))

	err = validateResponse([]rawTweet{{ErrorMessage: "internal actor failure"}}, "jack")
	require.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))

	err = validateResponse([]rawTweet{{ID: "1"}}, "jack")
	require.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))

	require.NoError(t, validateResponse([]rawTweet{{ID: "1", Text: "hello"}}, "jack"))
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, 30*time.Second, parseRetryAfter("30"))
	require.Equal(t, time.Duration(0), parseRetryAfter(""))
	require.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}

func TestNormalizeUsername(t *testing.T) {
	require.Equal(t, "jack", NormalizeUsername(" @jack "))
	require.Equal(t, "jack", NormalizeUsername("jack"))
}

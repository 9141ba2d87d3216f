package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/core/engine"
	apperrors "github.com/personalens/personalens/internal/errors"
)

const validVerdict = "```json\n" + `{
    "mbti_type": "INTJ",
    "dimensions": {
        "E_I": {"type": "I", "percentage": 72, "analysis": "long-form systematic posts"},
        "S_N": {"type": "N", "percentage": 65, "analysis": "abstract framing of concrete topics"},
        "T_F": {"type": "T", "percentage": 60, "analysis": "decision language is analytical"},
        "J_P": {"type": "J", "percentage": 55, "analysis": "decides before exploring"}
    },
    "overall_analysis": "A reserved systems thinker."
}` + "\n```"

func newTestAnalyzer(t *testing.T, server *httptest.Server) *Analyzer {
	t.Helper()

	registry := engine.NewRegistry(map[string]engine.ServiceSettings{
		ServiceName: {
			Limits:     engine.Limits{Minute: 1000, Hour: 1000, Day: 1000},
			Backoff:    engine.BackoffPolicy{Base: time.Millisecond, Multiplier: 2, Max: 5 * time.Millisecond},
			MaxRetries: 0,
		},
	})

	a := New(config.AnalyzerConfig{
		BaseURL:    server.URL,
		Model:      "gemini-2.5-flash",
		APIKey:     "test-key",
		MinTweets:  3,
		SampleSize: 30,
	}, registry, nil)
	a.client.HTTPClient = server.Client()
	a.exec.JitterMax = time.Millisecond
	return a
}

func sampleTweets(n int) *core.TweetSample {
	sample := &core.TweetSample{Username: "jack", FetchedAt: time.Now().UTC()}
	for i := 0; i < n; i++ {
		sample.Originals = append(sample.Originals, core.Tweet{
			ID:   fmt.Sprintf("%d", i),
			Text: fmt.Sprintf("thought number %d about systems", i),
		})
	}
	return sample
}

func geminiTextResponse(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestAnalyzeParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "@jack")
		require.Contains(t, string(body), "thought number 0")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiTextResponse(validVerdict)))
	}))
	defer server.Close()

	a := newTestAnalyzer(t, server)

	result, err := a.Analyze(context.Background(), sampleTweets(5))
	require.NoError(t, err)
	require.Equal(t, "INTJ", result.Type)
	require.Equal(t, "jack", result.Username)
	require.Equal(t, "gemini-2.5-flash", result.Model)
	require.Equal(t, 5, result.TweetCount)
	require.InDelta(t, 0.63, result.Confidence, 0.001)
	require.Len(t, result.Axes, 4)
	require.Equal(t, "EI", result.Axes[0].Dimension)
	require.Equal(t, "I", result.Axes[0].Value)
	require.Equal(t, 72, result.Axes[0].Percent)
}

func TestAnalyzeRejectsThinSample(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a thin sample")
	}))
	defer server.Close()

	a := newTestAnalyzer(t, server)

	_, err := a.Analyze(context.Background(), sampleTweets(2))
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
}

func TestAnalyzeRateLimitCarriesWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := newTestAnalyzer(t, server)

	_, err := a.Analyze(context.Background(), sampleTweets(5))
	require.Error(t, err)
	typed := apperrors.AsError(ServiceName, err)
	require.Equal(t, apperrors.KindRateLimited, typed.Kind)
	require.Equal(t, 45*time.Second, typed.Wait)
}

func TestAnalyzeSafetyBlockIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	a := newTestAnalyzer(t, server)

	_, err := a.Analyze(context.Background(), sampleTweets(5))
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
	require.Contains(t, err.Error(), "safety filter")
}

func TestAnalyzeEmptyCandidateIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	a := newTestAnalyzer(t, server)

	_, err := a.Analyze(context.Background(), sampleTweets(5))
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
}

func TestParseVerdictWithoutFence(t *testing.T) {
	bare := strings.TrimSuffix(strings.TrimPrefix(validVerdict, "```json\n"), "\n```")
	result, err := parseVerdict("Here is my analysis:\n"+bare+"\nHope this helps.", "jack")
	require.NoError(t, err)
	require.Equal(t, "INTJ", result.Type)
}

func TestParseVerdictRepairsTrailingComma(t *testing.T) {
	broken := strings.Replace(validVerdict, `"overall_analysis": "A reserved systems thinker."`,
		`"overall_analysis": "A reserved systems thinker.",`, 1)
	result, err := parseVerdict(broken, "jack")
	require.NoError(t, err)
	require.Equal(t, "INTJ", result.Type)
}

func TestParseVerdictRejectsBadType(t *testing.T) {
	bad := strings.Replace(validVerdict, "INTJ", "ABCD", 1)
	_, err := parseVerdict(bad, "jack")
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
}

func TestParseVerdictClampsPercentages(t *testing.T) {
	clamped := strings.Replace(validVerdict, `"percentage": 72`, `"percentage": 120`, 1)
	result, err := parseVerdict(clamped, "jack")
	require.NoError(t, err)
	require.Equal(t, 100, result.Axes[0].Percent)
}

func TestParseVerdictNoJSONIsEmptyResult(t *testing.T) {
	_, err := parseVerdict("I cannot analyze this user.", "jack")
	require.Error(t, err)
	require.Equal(t, apperrors.KindEmptyResult, apperrors.KindOf(err))
}

func TestFormatTweetsTruncatesAndAnnotates(t *testing.T) {
	long := strings.Repeat("x", 300)
	out := formatTweets([]core.Tweet{
		{Text: long, Likes: 50, Retweets: 2},
		{Text: "short"},
	})
	require.Contains(t, out, "1. "+strings.Repeat("x", 200)+"...")
	require.Contains(t, out, "[likes:50 retweets:2]")
	require.Contains(t, out, "2. short")

	require.Equal(t, "(no data)", formatTweets(nil))
}

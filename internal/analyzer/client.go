// Package analyzer infers MBTI personality types from tweet samples via
// the Gemini generateContent API. Calls run under the shared limiter for
// the "gemini" service identity.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/config"
	apperrors "github.com/personalens/personalens/internal/errors"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// ServiceName is the rate-limit identity for Gemini calls.
const ServiceName = config.ServiceGemini

// rateLimitFallbackWait is used when a 429 arrives without a
// Retry-After header.
const rateLimitFallbackWait = 60 * time.Second

// Client calls the Gemini API via direct HTTP.
type Client struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(cfg config.AnalyzerConfig) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		BaseURL: base,
		Model:   strings.TrimSpace(cfg.Model),
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Timeout: cfg.Timeout,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// generateContent sends a prompt and returns the first candidate's text.
// Safety blocks and empty candidates surface as empty-result failures
// because retrying the same prompt cannot change the verdict.
func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", apperrors.Transient(ServiceName, "analyzer client not configured", nil)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return "", apperrors.Transient(ServiceName, "api key is required", nil)
	}
	if strings.TrimSpace(c.Model) == "" {
		return "", apperrors.Transient(ServiceName, "model is required", nil)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", apperrors.Transient(ServiceName, "encode generate request", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.BaseURL, "/"), c.Model, c.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Transient(ServiceName, "build generate request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", apperrors.Transient(ServiceName, "generate request failed", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Transient(ServiceName, "read generate response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfterWait(resp.Header.Get("Retry-After"))
		return "", apperrors.RateLimited(ServiceName, wait, "gemini rate limit exceeded")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(string(respBody))
		return "", apperrors.FromStatus(ServiceName, "", resp.StatusCode, detail, 0)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", apperrors.Transient(ServiceName, "decode generate response", err)
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", apperrors.EmptyResult(ServiceName, "",
			fmt.Sprintf("content blocked by safety filter (%s)", parsed.PromptFeedback.BlockReason))
	}
	if len(parsed.Candidates) == 0 {
		return "", apperrors.EmptyResult(ServiceName, "", "gemini returned no candidates")
	}

	first := parsed.Candidates[0]
	if strings.EqualFold(first.FinishReason, "SAFETY") {
		return "", apperrors.EmptyResult(ServiceName, "", "content blocked by safety filter")
	}

	var text strings.Builder
	for _, p := range first.Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", apperrors.EmptyResult(ServiceName, "", "gemini returned an empty response")
	}

	return text.String(), nil
}

func retryAfterWait(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return rateLimitFallbackWait
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return rateLimitFallbackWait
}

// Package scraper fetches tweets through the Apify tweet-scraper actor.
// All remote calls run under the shared rate-limit and retry discipline
// for the "apify" service identity.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/config"
	apperrors "github.com/personalens/personalens/internal/errors"
)

const defaultBaseURL = "https://api.apify.com"

// ServiceName is the rate-limit identity for Apify calls.
const ServiceName = config.ServiceApify

// Client calls the Apify actor API via direct HTTP using synchronous
// run-and-collect semantics.
type Client struct {
	BaseURL    string
	ActorID    string
	APIToken   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(cfg config.ScraperConfig) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		BaseURL:  base,
		ActorID:  strings.TrimSpace(cfg.ActorID),
		APIToken: strings.TrimSpace(cfg.APIToken),
		Timeout:  cfg.Timeout,
	}
}

// userTweetsInput is the actor payload for a direct timeline fetch.
type userTweetsInput struct {
	TwitterHandles []string `json:"twitterHandles"`
	MaxItems       int      `json:"maxItems"`
	Sort           string   `json:"sort"`
}

// searchInput is the actor payload for an advanced-search fetch.
type searchInput struct {
	SearchTerms []string `json:"searchTerms"`
	MaxItems    int      `json:"maxItems"`
	Sort        string   `json:"sort"`
}

// rawAuthor is the nested author object some actor versions return.
type rawAuthor struct {
	UserName    string `json:"userName"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// rawTweet mirrors the actor's dataset item shape. Field fallbacks cover
// the format drift between actor versions.
type rawTweet struct {
	ID                string     `json:"id"`
	Text              string     `json:"text"`
	FullText          string     `json:"fullText"`
	Author            *rawAuthor `json:"author"`
	UserName          string     `json:"userName"`
	Name              string     `json:"name"`
	CreatedAt         string     `json:"createdAt"`
	URL               string     `json:"url"`
	TwitterURL        string     `json:"twitterUrl"`
	LikeCount         int        `json:"likeCount"`
	RetweetCount      int        `json:"retweetCount"`
	ReplyCount        int        `json:"replyCount"`
	ViewCount         int        `json:"viewCount"`
	IsReply           bool       `json:"isReply"`
	InReplyToID       string     `json:"inReplyToId"`
	IsRetweet         bool       `json:"isRetweet"`
	RetweetedStatusID string     `json:"retweetedStatusId"`
	IsQuote           bool       `json:"isQuote"`
	IsPin             bool       `json:"isPin"`
	Hashtags          []string   `json:"hashtags"`
	Mentions          []string   `json:"mentions"`
	ErrorMessage      string     `json:"error"`
}

func (t *rawTweet) text() string {
	if t.Text != "" {
		return t.Text
	}
	return t.FullText
}

func (t *rawTweet) authorUsername() string {
	if t.Author != nil {
		return t.Author.UserName
	}
	return t.UserName
}

func (t *rawTweet) authorName() string {
	if t.Author != nil {
		if t.Author.Name != "" {
			return t.Author.Name
		}
		return t.Author.DisplayName
	}
	return t.Name
}

// runActor runs the configured actor synchronously and returns its
// dataset items. Non-2xx statuses map into the failure taxonomy.
func (c *Client) runActor(ctx context.Context, input any) ([]rawTweet, error) {
	if c == nil {
		return nil, apperrors.Transient(ServiceName, "scraper client not configured", nil)
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return nil, apperrors.Transient(ServiceName, "api token is required", nil)
	}
	if strings.TrimSpace(c.ActorID) == "" {
		return nil, apperrors.Transient(ServiceName, "actor id is required", nil)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, apperrors.Transient(ServiceName, "encode actor input", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.ActorID), url.QueryEscape(c.APIToken))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Transient(ServiceName, "build actor request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Transient(ServiceName, "actor request failed", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transient(ServiceName, "read actor response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(string(respBody))
		return nil, apperrors.FromStatus(ServiceName, "", resp.StatusCode, detail, parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	var items []rawTweet
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, apperrors.Transient(ServiceName, "decode actor response", err)
	}

	return items, nil
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

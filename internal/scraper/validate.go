package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/core"
	apperrors "github.com/personalens/personalens/internal/errors"
)

// validateResponse classifies an actor payload before extraction. The
// actor reports failures as a single dataset item carrying an error
// message rather than a non-2xx status.
func validateResponse(items []rawTweet, username string) error {
	if len(items) == 0 {
		return apperrors.EmptyResult(ServiceName, username, "actor returned no items")
	}

	if len(items) == 1 {
		first := items[0]
		if msg := strings.TrimSpace(first.ErrorMessage); msg != "" {
			lower := strings.ToLower(msg)
			switch {
			case strings.Contains(lower, "user not found") || strings.Contains(lower, "does not exist"):
				return apperrors.NotFound(ServiceName, username, msg)
			case strings.Contains(lower, "rate limit"):
				return apperrors.RateLimited(ServiceName, 0, msg)
			default:
				return apperrors.Transient(ServiceName, fmt.Sprintf("actor error: %s", msg), nil)
			}
		}
		if first.text() == "" {
			return apperrors.Transient(ServiceName, "actor returned an invalid tweet format", nil)
		}
	}

	return nil
}

// checkAuthor verifies the payload actually belongs to the requested
// user. A mismatch means the account is missing, private, or suspended
// and the actor returned filler content.
func checkAuthor(items []rawTweet, username string) error {
	if len(items) == 0 {
		return apperrors.EmptyResult(ServiceName, username, "no tweets available")
	}

	// The first few items are enough to establish ownership.
	probe := items
	if len(probe) > 5 {
		probe = probe[:5]
	}
	for _, item := range probe {
		if strings.EqualFold(item.authorUsername(), username) {
			return nil
		}
	}

	return apperrors.NotFound(ServiceName, username,
		fmt.Sprintf("user @%s does not exist or the account is restricted", username))
}

// extractTweets converts valid dataset items to normalized tweets,
// dropping items with no text.
func extractTweets(items []rawTweet, fetchedAt time.Time) []core.Tweet {
	tweets := make([]core.Tweet, 0, len(items))
	for i := range items {
		item := &items[i]
		text := item.text()
		if text == "" {
			continue
		}

		url := item.URL
		if url == "" {
			url = item.TwitterURL
		}

		tweets = append(tweets, core.Tweet{
			ID:         item.ID,
			Text:       text,
			Author:     item.authorUsername(),
			AuthorName: item.authorName(),
			CreatedAt:  item.CreatedAt,
			URL:        url,
			Likes:      item.LikeCount,
			Retweets:   item.RetweetCount,
			Replies:    item.ReplyCount,
			Views:      item.ViewCount,
			IsReply:    item.IsReply || item.InReplyToID != "",
			IsRetweet:  item.IsRetweet || item.RetweetedStatusID != "",
			IsQuote:    item.IsQuote,
			IsPin:      item.IsPin,
			Hashtags:   item.Hashtags,
			Mentions:   item.Mentions,
			FetchedAt:  fetchedAt,
		})
	}
	return tweets
}

// filterOriginals keeps tweets that are neither retweets nor replies.
func filterOriginals(tweets []core.Tweet) []core.Tweet {
	kept := make([]core.Tweet, 0, len(tweets))
	for _, t := range tweets {
		if !t.IsRetweet && !t.IsReply {
			kept = append(kept, t)
		}
	}
	return kept
}

// filterReplies keeps replies that are not retweets.
func filterReplies(tweets []core.Tweet) []core.Tweet {
	kept := make([]core.Tweet, 0, len(tweets))
	for _, t := range tweets {
		if t.IsReply && !t.IsRetweet {
			kept = append(kept, t)
		}
	}
	return kept
}

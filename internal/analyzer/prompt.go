package analyzer

import (
	"fmt"
	"strings"

	"github.com/personalens/personalens/internal/core"
)

// maxPromptTweetLength truncates individual tweets so one long thread
// post cannot dominate the prompt.
const maxPromptTweetLength = 200

// buildPrompt renders the analysis prompt for one sample. Originals and
// replies are presented separately because interaction style carries
// different signal than broadcast style.
func buildPrompt(sample *core.TweetSample, sampleSize int) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a professional psychologist specializing in MBTI personality theory. Analyze the tweets of Twitter user @%s and infer their MBTI type.

## Guidelines
1. Avoid type bias: the 16 MBTI types are distributed fairly evenly across the population. Do not over-assign ISTJ or any other type.
2. Account for the medium: Twitter shows a user's public face. Rational wording does not imply T, concrete topics do not imply S, and a regular posting cadence does not imply J.
3. Weigh balanced evidence on every axis: look for BOTH poles before deciding.
   - I/E: energy direction and interaction patterns, not posting volume.
   - S/N: concrete-to-concrete reasoning suggests S; concrete-to-abstract suggests N.
   - T/F: phrases like "I feel", empathy toward others, and attention to user experience suggest F even in technical content.
   - J/P: "decide then explore" suggests J; "explore then decide" suggests P.
4. These are sampled tweets. Do not treat sample counts as activity levels and do not cite tweets by number; describe topics instead.

## Original tweets
%s

## Replies to others
%s

## Output format
Respond with valid JSON only, matching exactly:

`, sample.Username, formatTweets(capSample(sample.Originals, sampleSize)), formatTweets(capSample(sample.Replies, sampleSize)))

	b.WriteString("```json\n" + `{
    "mbti_type": "XXXX",
    "dimensions": {
        "E_I": {"type": "I or E", "percentage": 50-100, "analysis": "reasoning"},
        "S_N": {"type": "S or N", "percentage": 50-100, "analysis": "reasoning"},
        "T_F": {"type": "T or F", "percentage": 50-100, "analysis": "reasoning"},
        "J_P": {"type": "J or P", "percentage": 50-100, "analysis": "reasoning"}
    },
    "overall_analysis": "a concise overall personality description"
}` + "\n```\n")

	b.WriteString(`
Percentage expresses the strength of the tendency: 50-60 slight, 60-70 moderate, 70-85 strong, 85-100 extreme (rare). Most people fall between 55 and 70. In analysis fields refer to the subject as "the user" without gendered pronouns.`)

	return b.String()
}

func capSample(tweets []core.Tweet, limit int) []core.Tweet {
	if limit > 0 && len(tweets) > limit {
		return tweets[:limit]
	}
	return tweets
}

func formatTweets(tweets []core.Tweet) string {
	if len(tweets) == 0 {
		return "(no data)"
	}

	var b strings.Builder
	for i, tweet := range tweets {
		text := strings.Join(strings.Fields(tweet.Text), " ")
		if runes := []rune(text); len(runes) > maxPromptTweetLength {
			text = string(runes[:maxPromptTweetLength]) + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, text)

		if tweet.Likes > 10 || tweet.Retweets > 5 {
			fmt.Fprintf(&b, "   [likes:%d retweets:%d]\n", tweet.Likes, tweet.Retweets)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

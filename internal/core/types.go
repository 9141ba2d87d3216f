package core

import "time"

// Tweet is a normalized tweet extracted from the scraper payload.
type Tweet struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Author     string    `json:"author"`
	AuthorName string    `json:"author_name,omitempty"`
	CreatedAt  string    `json:"created_at,omitempty"`
	URL        string    `json:"url,omitempty"`
	Likes      int       `json:"likes"`
	Retweets   int       `json:"retweets"`
	Replies    int       `json:"replies"`
	Views      int       `json:"views"`
	IsReply    bool      `json:"is_reply"`
	IsRetweet  bool      `json:"is_retweet"`
	IsQuote    bool      `json:"is_quote"`
	IsPin      bool      `json:"is_pin"`
	Hashtags   []string  `json:"hashtags,omitempty"`
	Mentions   []string  `json:"mentions,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// TweetSample is the material handed to the analyzer: a user's original
// tweets and their replies to others, already filtered and capped.
type TweetSample struct {
	Username  string    `json:"username"`
	Originals []Tweet   `json:"originals"`
	Replies   []Tweet   `json:"replies"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Total returns the number of tweets in the sample.
func (s *TweetSample) Total() int {
	if s == nil {
		return 0
	}
	return len(s.Originals) + len(s.Replies)
}

// AxisScore reports one MBTI dimension: which pole won and how strongly.
type AxisScore struct {
	Dimension string `json:"dimension"` // "EI", "SN", "TF", "JP"
	Value     string `json:"value"`     // winning pole, e.g. "I"
	Percent   int    `json:"percent"`   // confidence toward the winning pole, 50-100
	Evidence  string `json:"evidence,omitempty"`
}

// MBTIResult is the analyzer's verdict for one subject.
type MBTIResult struct {
	Username   string      `json:"username"`
	Type       string      `json:"type"` // e.g. "INFP"
	Confidence float64     `json:"confidence"`
	Axes       []AxisScore `json:"axes"`
	Summary    string      `json:"summary,omitempty"`
	Model      string      `json:"model,omitempty"`
	TweetCount int         `json:"tweet_count"`
	AnalyzedAt time.Time   `json:"analyzed_at"`
}

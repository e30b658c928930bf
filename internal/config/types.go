package config

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidTopics means the topics file could not be decoded or failed validation.
	ErrInvalidTopics = errors.New("invalid topics")

	// ErrInvalidSetting means an environment setting has an unusable value.
	ErrInvalidSetting = errors.New("invalid setting")
)

// TopicsFile is the on-disk topics document (YAML or JSON).
type TopicsFile struct {
	Topics []Topic `json:"topics"`
}

// Topic is one subscription: a feed query and the env var naming where to
// deliver matching entries.
type Topic struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	WebhookEnv string `json:"webhook_env"`

	// Query is a full feed URL or a raw arXiv search_query expression.
	Query string `json:"query,omitempty"`

	// ArxivURL is the older spelling of Query and is used when Query is empty.
	ArxivURL string `json:"arxiv_url,omitempty"`

	// MaxResults overrides MAX_RESULTS for raw arXiv queries.
	MaxResults int `json:"max_results,omitempty"`
}

// FeedQuery returns the effective query string.
func (t Topic) FeedQuery() string {
	if q := strings.TrimSpace(t.Query); q != "" {
		return q
	}
	return strings.TrimSpace(t.ArxivURL)
}

func (t Topic) normalized() Topic {
	t.ID = strings.TrimSpace(t.ID)
	t.Title = strings.TrimSpace(t.Title)
	t.WebhookEnv = strings.TrimSpace(t.WebhookEnv)
	t.Query = t.FeedQuery()
	t.ArxivURL = ""
	return t
}

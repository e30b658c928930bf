package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	// ArxivAPI is the arXiv Atom query endpoint.
	ArxivAPI = "https://export.arxiv.org/api/query"

	defaultFetchTimeout = 60 * time.Second
	defaultMaxResults   = 50
	userAgent           = "arxivrelay/1.0 (+https://arxiv.org/help/api)"
)

var queryEscaper = strings.NewReplacer(" ", "+", `"`, "%22")

// QueryURL turns a topic query into a feed URL. Full http(s) URLs are used
// as-is; anything else is treated as an arXiv search_query expression and
// sorted newest first.
func QueryURL(query string, maxResults int) string {
	q := strings.TrimSpace(query)
	low := strings.ToLower(q)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		return q
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return ArxivAPI +
		"?search_query=" + queryEscaper.Replace(q) +
		"&sortBy=submittedDate&sortOrder=descending" +
		"&max_results=" + strconv.Itoa(maxResults)
}

// Result is one fetched page.
type Result struct {
	URL     string
	Status  int
	Entries []Entry
	// TotalResults is the opensearch total reported upstream, if any.
	TotalResults string
}

// Fetcher pulls Atom/RSS documents and converts them to entries.
type Fetcher struct {
	parser *gofeed.Parser
	client *http.Client
}

// NewFetcher builds a fetcher. A nil client gets a default one with a
// generous timeout; the arXiv API is slow on broad queries.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{parser: gofeed.NewParser(), client: client}
}

// Fetch downloads and parses the feed for query.
func (f *Fetcher) Fetch(ctx context.Context, query string, maxResults int) (Result, error) {
	u := QueryURL(query, maxResults)
	res := Result{URL: u}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return res, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := f.parser.Parse(resp.Body)
	if err != nil {
		return res, fmt.Errorf("parse feed: %w", err)
	}
	res.Entries = convertItems(doc)
	res.TotalResults = totalResults(doc)
	return res, nil
}

func convertItems(doc *gofeed.Feed) []Entry {
	out := make([]Entry, 0, len(doc.Items))
	for _, it := range doc.Items {
		if it == nil {
			continue
		}
		out = append(out, Entry{
			Title:     it.Title,
			Link:      it.Link,
			Published: strings.TrimSpace(it.Published),
		})
	}
	return out
}

func totalResults(doc *gofeed.Feed) string {
	if doc.Extensions == nil {
		return ""
	}
	for _, prefix := range []string{"opensearch", "os"} {
		if exts := doc.Extensions[prefix]["totalResults"]; len(exts) > 0 {
			return strings.TrimSpace(exts[0].Value)
		}
	}
	return ""
}

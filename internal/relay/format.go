package relay

import (
	"fmt"
	"strings"

	"arxivrelay/internal/feed"
)

const (
	summaryTitleRunes = 160
	logTitleRunes     = 90
	logBodyRunes      = 200
	dateLayout        = "2006-01-02"
)

// SummaryLines renders the summary message body before chunking.
func SummaryLines(title string, w Window, fetched int, items []feed.Kept) []string {
	lines := make([]string, 0, 4+2*len(items))
	lines = append(lines,
		fmt.Sprintf("**%s — summary**", singleLine(title)),
		"Time window: "+w.String(),
		fmt.Sprintf("Fetched: %d | After filter: %d", fetched, len(items)),
		"",
	)
	for i, k := range items {
		lines = append(lines,
			fmt.Sprintf("%d. **%s** (%s)", i+1, shorten(singleLine(k.Title), summaryTitleRunes), k.PublishedAt.UTC().Format(dateLayout)),
			"   "+strings.TrimSpace(k.Link),
		)
	}
	return lines
}

// ItemMessage renders one entry as a standalone message.
func ItemMessage(k feed.Kept) string {
	return fmt.Sprintf("**%s**\n🗓 %s\n🔗 %s",
		singleLine(k.Title),
		k.PublishedAt.UTC().Format(dateLayout),
		strings.TrimSpace(k.Link),
	)
}

// singleLine collapses line breaks and runs of whitespace; arXiv wraps long
// titles across lines.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

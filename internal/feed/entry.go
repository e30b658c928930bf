package feed

import (
	"time"
)

// PublishedLayout is the exact timestamp form the arXiv API emits for
// <published>.
const PublishedLayout = "2006-01-02T15:04:05Z"

// Entry is one upstream publication record.
type Entry struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

// ParsePublished parses an entry timestamp in PublishedLayout as UTC.
func ParsePublished(raw string) (time.Time, error) {
	return time.ParseInLocation(PublishedLayout, raw, time.UTC)
}

// Cutoff is the exclusive lower bound for entry publication times.
// The zero value is unbounded.
type Cutoff struct {
	at      time.Time
	bounded bool
}

// Unbounded returns a cutoff that admits every parsable entry.
func Unbounded() Cutoff { return Cutoff{} }

// After returns a cutoff admitting entries strictly after t.
func After(t time.Time) Cutoff { return Cutoff{at: t.UTC(), bounded: true} }

// Bounded reports whether the cutoff filters at all.
func (c Cutoff) Bounded() bool { return c.bounded }

// Time returns the cutoff instant; zero when unbounded.
func (c Cutoff) Time() time.Time { return c.at }

// Admits reports whether an entry published at t passes the cutoff.
func (c Cutoff) Admits(t time.Time) bool {
	return !c.bounded || t.After(c.at)
}

func (c Cutoff) String() string {
	if !c.bounded {
		return "unbounded"
	}
	return c.at.Format(time.RFC3339)
}

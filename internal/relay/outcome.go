package relay

import (
	"time"

	"arxivrelay/internal/storage"
)

// Outcome is what happened to one topic in one run. Counts stay accurate
// when Err is set.
type Outcome struct {
	TopicID string
	Title   string

	// Mode is the resolved mode; ModeAuto means nothing was posted.
	Mode Mode

	Fetched        int
	Filtered       int
	SkippedBadDate int
	Capped         bool

	PostedOK   int
	PostedFail int
	Throttles  int

	// Skipped is set when the destination env var was unset.
	Skipped bool

	Err  error
	Took time.Duration
}

// Attempts is the number of messages handed to the sender.
func (o Outcome) Attempts() int { return o.PostedOK + o.PostedFail }

func (o Outcome) record(runID string, at time.Time) storage.Record {
	rec := storage.Record{
		RunID:          runID,
		At:             at.UTC(),
		TopicID:        o.TopicID,
		Title:          o.Title,
		Fetched:        o.Fetched,
		Filtered:       o.Filtered,
		SkippedBadDate: o.SkippedBadDate,
		Capped:         o.Capped,
		PostedOK:       o.PostedOK,
		PostedFail:     o.PostedFail,
		Skipped:        o.Skipped,
		TookMS:         o.Took.Milliseconds(),
	}
	if o.Mode != ModeAuto {
		rec.Mode = o.Mode.String()
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// Report collects the outcomes of one run in topic order.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Failed counts topics that ended with an error.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Posted sums delivery results across topics.
func (r Report) Posted() (ok, failed int) {
	for _, o := range r.Outcomes {
		ok += o.PostedOK
		failed += o.PostedFail
	}
	return ok, failed
}

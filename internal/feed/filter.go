package feed

import "time"

// Kept is an entry that passed the filter together with its parsed time.
type Kept struct {
	Entry
	PublishedAt time.Time
}

// Skip describes an entry dropped because its timestamp did not parse.
type Skip struct {
	Entry Entry
	Err   error
}

// FilterResult is the outcome of Filter.
type FilterResult struct {
	Kept    []Kept
	Skipped []Skip
}

// SkippedCount is the number of entries with unparsable timestamps.
func (r FilterResult) SkippedCount() int { return len(r.Skipped) }

// Filter keeps entries published strictly after cutoff, in upstream order.
// Entries whose timestamp does not parse are excluded and reported in
// Skipped; they never abort the remaining entries.
func Filter(entries []Entry, cutoff Cutoff) FilterResult {
	res := FilterResult{Kept: make([]Kept, 0, len(entries))}
	for _, e := range entries {
		at, err := ParsePublished(e.Published)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Entry: e, Err: err})
			continue
		}
		if cutoff.Admits(at) {
			res.Kept = append(res.Kept, Kept{Entry: e, PublishedAt: at})
		}
	}
	return res
}

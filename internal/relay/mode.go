package relay

import (
	"fmt"
	"strings"
	"time"

	"arxivrelay/internal/feed"
)

// Mode is how a topic's entries are posted.
type Mode int

const (
	ModeAuto Mode = iota
	ModePerItem
	ModeSummary
)

// SummaryThreshold is the entry count (and window length in days) at which
// auto mode switches to a summary.
const SummaryThreshold = 30

func (m Mode) String() string {
	switch m {
	case ModePerItem:
		return "per_paper"
	case ModeSummary:
		return "summary"
	default:
		return "auto"
	}
}

// ParseMode accepts auto, per_paper, per_item, per-item and summary.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "per_paper", "per-paper", "per_item", "per-item":
		return ModePerItem, nil
	case "summary":
		return ModeSummary, nil
	default:
		return ModeAuto, fmt.Errorf("%w %q (want auto, per_paper or summary)", ErrUnknownMode, s)
	}
}

// SelectMode resolves the configured mode for one topic. Explicit modes
// win; auto picks summary for wide windows or many entries.
func SelectMode(configured Mode, w Window, filtered int) Mode {
	switch configured {
	case ModePerItem, ModeSummary:
		return configured
	}
	if w.Unbounded || w.Days >= SummaryThreshold || filtered >= SummaryThreshold {
		return ModeSummary
	}
	return ModePerItem
}

// Window is how far back a run looks.
type Window struct {
	Days      int
	Unbounded bool
}

// LastDays keeps entries published in the n days before the run.
func LastDays(n int) Window { return Window{Days: n} }

// AllTime disables date filtering (TIME_FRAME=all).
func AllTime() Window { return Window{Unbounded: true} }

// Cutoff anchors the window at now.
func (w Window) Cutoff(now time.Time) feed.Cutoff {
	if w.Unbounded {
		return feed.Unbounded()
	}
	return feed.After(now.UTC().Add(-time.Duration(w.Days) * 24 * time.Hour))
}

func (w Window) String() string {
	if w.Unbounded {
		return "ALL (no date filter)"
	}
	return fmt.Sprintf("last %d days", w.Days)
}

package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFetch means the feed for a topic could not be fetched.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrNoEntries means the upstream feed answered with zero entries,
	// which usually points at a broken query rather than a quiet day.
	ErrNoEntries = fmt.Errorf("%w: upstream returned no entries", ErrUpstreamFetch)

	ErrUnknownMode = errors.New("unknown mode")
)

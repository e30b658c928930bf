package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file at Path
//   - "postgres": PostgreSQL reached through DSN
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one topic outcome of one run.
// Keep it compact and schema-stable.
type Record struct {
	RunID          string    `json:"run_id"`
	At             time.Time `json:"at"`
	TopicID        string    `json:"topic_id"`
	Title          string    `json:"title"`
	Mode           string    `json:"mode,omitempty"`
	Fetched        int       `json:"fetched"`
	Filtered       int       `json:"filtered"`
	SkippedBadDate int       `json:"skipped_bad_date"`
	Capped         bool      `json:"capped,omitempty"`
	PostedOK       int       `json:"posted_ok"`
	PostedFail     int       `json:"posted_fail"`
	Skipped        bool      `json:"skipped,omitempty"`
	Error          string    `json:"error,omitempty"`
	TookMS         int64     `json:"took_ms"`
}

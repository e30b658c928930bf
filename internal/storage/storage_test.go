package storage

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "arxivrelay/pkg/logx"
)

func sampleRecord(topic string) Record {
	return Record{
		RunID:      "run-1",
		At:         time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC),
		TopicID:    topic,
		Title:      "QGP x ML",
		Mode:       "per_paper",
		Fetched:    3,
		Filtered:   1,
		PostedOK:   1,
		PostedFail: 0,
		TookMS:     120,
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(context.Background(), Config{Driver: d}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", d, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error without DSN")
	}
}

func TestFileStoreAppends(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(context.Background(), Config{Driver: "file", Path: filepath.Join(dir, "relay.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := st.AppendOutcome(context.Background(), sampleRecord(id)); err != nil {
			t.Fatalf("AppendOutcome: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendOutcome(context.Background(), sampleRecord("c")); err != ErrDisabled {
		t.Fatalf("append after close = %v, want ErrDisabled", err)
	}

	f, err := os.Open(filepath.Join(dir, "relay.outcomes.jsonl"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var got []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 || got[0].TopicID != "a" || got[1].TopicID != "b" {
		t.Fatalf("records = %+v, want a then b", got)
	}
	if got[0].PostedOK != 1 || got[0].Mode != "per_paper" {
		t.Fatalf("record fields lost: %+v", got[0])
	}
}

func TestSQLiteStoreAppends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "relay.sqlite")
	st, err := Open(context.Background(), Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := sampleRecord("qgp-ml")
	rec.Skipped = true
	rec.Error = ""
	if err := st.AppendOutcome(context.Background(), rec); err != nil {
		t.Fatalf("AppendOutcome: %v", err)
	}
	if err := st.AppendOutcome(context.Background(), Record{RunID: "run-1", TopicID: "other", Title: "x", Error: "upstream fetch failed"}); err != nil {
		t.Fatalf("AppendOutcome: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM outcomes WHERE run_id = ?`, "run-1").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	var skipped int
	var mode sql.NullString
	if err := db.QueryRow(`SELECT skipped, mode FROM outcomes WHERE topic_id = ?`, "qgp-ml").Scan(&skipped, &mode); err != nil {
		t.Fatalf("select: %v", err)
	}
	if skipped != 1 || mode.String != "per_paper" {
		t.Fatalf("skipped=%d mode=%q", skipped, mode.String)
	}
	var errText sql.NullString
	if err := db.QueryRow(`SELECT err FROM outcomes WHERE topic_id = ?`, "other").Scan(&errText); err != nil {
		t.Fatalf("select err: %v", err)
	}
	if errText.String != "upstream fetch failed" {
		t.Fatalf("err = %q", errText.String)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTopics(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestTopicsManagerReloadKeepsLastGood(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "topics.yml")
	writeTopics(t, path, "topics:\n  - {id: a, title: A, webhook_env: H, query: q}\n")

	m := NewTopicsManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	// Invalid edit: previous list stays, nothing published.
	writeTopics(t, path, "topics:\n  - {id: a, title: A}\n")
	m.reload()
	if got := m.Get(); len(got.Topics) != 1 || got.Topics[0].ID != "a" {
		t.Fatalf("after bad edit Get() = %+v", got)
	}
	select {
	case tf := <-sub:
		t.Fatalf("unexpected publish %+v", tf)
	default:
	}

	// Unchanged content: no publish.
	writeTopics(t, path, "topics:\n  - {id: a, title: A, webhook_env: H, query: q}\n")
	m.reload()
	select {
	case tf := <-sub:
		t.Fatalf("unexpected publish of unchanged list %+v", tf)
	default:
	}

	// Valid change: committed and published.
	writeTopics(t, path, "topics:\n  - {id: a, title: A, webhook_env: H, query: q}\n  - {id: b, title: B, webhook_env: H, query: q}\n")
	m.reload()
	if got := m.Get(); len(got.Topics) != 2 {
		t.Fatalf("after good edit Get() has %d topics, want 2", len(got.Topics))
	}
	select {
	case tf := <-sub:
		if len(tf.Topics) != 2 {
			t.Fatalf("published %d topics, want 2", len(tf.Topics))
		}
	default:
		t.Fatal("expected publish after valid change")
	}
}

func TestTopicsManagerLoadError(t *testing.T) {
	t.Parallel()
	m := NewTopicsManager(filepath.Join(t.TempDir(), "missing.yml"))
	if _, err := m.Load(); !errors.Is(err, ErrInvalidTopics) {
		t.Fatalf("err = %v, want ErrInvalidTopics", err)
	}
	if m.Get() != nil {
		t.Fatal("Get() should be nil before a successful load")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	m := NewTopicsManager("unused.yml")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	m.publish(&TopicsFile{})
}

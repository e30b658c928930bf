package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleTopicsYAML = `
topics:
  - id: qgp-ml
    title: "QGP x Machine Learning"
    webhook_env: DISCORD_WEBHOOK_URL_QGP_ML
    query: 'cat:nucl-th AND abs:"machine learning"'
    max_results: 100
  - id: hep-ph
    title: HEP phenomenology
    webhook_env: DISCORD_WEBHOOK_URL_HEP_PH
    arxiv_url: "https://export.arxiv.org/api/query?search_query=cat:hep-ph&max_results=50"
`

func TestParseTopicsYAML(t *testing.T) {
	t.Parallel()
	tf, err := ParseTopics("topics/hep.yml", []byte(sampleTopicsYAML))
	if err != nil {
		t.Fatalf("ParseTopics: %v", err)
	}
	if len(tf.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(tf.Topics))
	}
	if tf.Topics[0].ID != "qgp-ml" || tf.Topics[0].MaxResults != 100 {
		t.Fatalf("topic[0] = %+v", tf.Topics[0])
	}
	if got := tf.Topics[1].Query; got != "https://export.arxiv.org/api/query?search_query=cat:hep-ph&max_results=50" {
		t.Fatalf("legacy arxiv_url not mapped to query: %q", got)
	}
	if tf.Topics[1].ArxivURL != "" {
		t.Fatalf("ArxivURL should be folded into Query, got %q", tf.Topics[1].ArxivURL)
	}
}

func TestParseTopicsJSON(t *testing.T) {
	t.Parallel()
	doc := `{"topics":[{"id":" a ","title":"A","webhook_env":"HOOK_A","query":"cat:hep-th"}]}`
	tf, err := ParseTopics("topics.json", []byte(doc))
	if err != nil {
		t.Fatalf("ParseTopics: %v", err)
	}
	if tf.Topics[0].ID != "a" {
		t.Fatalf("id = %q, want trimmed", tf.Topics[0].ID)
	}
}

func TestParseTopicsEmptyList(t *testing.T) {
	t.Parallel()
	tf, err := ParseTopics("t.yaml", []byte("topics: []\n"))
	if err != nil {
		t.Fatalf("ParseTopics: %v", err)
	}
	if len(tf.Topics) != 0 {
		t.Fatalf("topics = %d, want 0", len(tf.Topics))
	}
}

func TestParseTopicsRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		doc  string
	}{
		{"unknown key", "t.yaml", "topics:\n  - id: a\n    title: A\n    webhook_env: H\n    query: q\n    colour: red\n"},
		{"unknown top-level", "t.yaml", "topic:\n  - id: a\n"},
		{"missing title", "t.yaml", "topics:\n  - id: a\n    webhook_env: H\n    query: q\n"},
		{"blank webhook env", "t.yaml", "topics:\n  - id: a\n    title: A\n    webhook_env: '  '\n    query: q\n"},
		{"missing query", "t.yaml", "topics:\n  - id: a\n    title: A\n    webhook_env: H\n"},
		{"duplicate id", "t.yaml", "topics:\n  - {id: a, title: A, webhook_env: H, query: q}\n  - {id: a, title: B, webhook_env: H2, query: q2}\n"},
		{"negative max results", "t.yaml", "topics:\n  - {id: a, title: A, webhook_env: H, query: q, max_results: -1}\n"},
		{"bad yaml", "t.yaml", "topics: [\n"},
		{"trailing json", "t.json", `{"topics":[]} {"topics":[]}`},
		{"numeric id", "t.json", `{"topics":[{"id":1,"title":"A","webhook_env":"H","query":"q"}]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseTopics(tt.path, []byte(tt.doc)); !errors.Is(err, ErrInvalidTopics) {
				t.Fatalf("err = %v, want ErrInvalidTopics", err)
			}
		})
	}
}

func TestLoadTopicsMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadTopics(filepath.Join(t.TempDir(), "nope.yml")); !errors.Is(err, ErrInvalidTopics) {
		t.Fatalf("err = %v, want ErrInvalidTopics", err)
	}
}

func TestLoadTopicsFromDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hep.yml")
	if err := os.WriteFile(path, []byte(sampleTopicsYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	tf, err := LoadTopics(path)
	if err != nil {
		t.Fatalf("LoadTopics: %v", err)
	}
	if len(tf.Topics) != 2 {
		t.Fatalf("topics = %d", len(tf.Topics))
	}
}

func TestSummarizeTopicsChange(t *testing.T) {
	t.Parallel()
	oldTF := &TopicsFile{Topics: []Topic{
		{ID: "a", Title: "A", WebhookEnv: "H", Query: "q"},
		{ID: "b", Title: "B", WebhookEnv: "H", Query: "q"},
	}}
	newTF := &TopicsFile{Topics: []Topic{
		{ID: "a", Title: "A2", WebhookEnv: "H", Query: "q"},
		{ID: "c", Title: "C", WebhookEnv: "H", Query: "q"},
	}}
	added, removed, changed, attrs := SummarizeTopicsChange(oldTF, newTF)
	if len(added) != 1 || added[0] != "c" {
		t.Fatalf("added = %v", added)
	}
	if len(removed) != 1 || removed[0] != "b" {
		t.Fatalf("removed = %v", removed)
	}
	if len(changed) != 1 || changed[0] != "a" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected log fields")
	}
}

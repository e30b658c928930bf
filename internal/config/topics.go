package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadTopics reads, strictly decodes and validates a topics file.
func LoadTopics(path string) (*TopicsFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopics, err)
	}
	return ParseTopics(path, b)
}

// ParseTopics decodes data as the topics file at path. The extension picks
// YAML (.yaml/.yml) or JSON.
func ParseTopics(path string, data []byte) (*TopicsFile, error) {
	jb, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopics, err)
	}

	var tf TopicsFile
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("%w: %s decode: %v", ErrInvalidTopics, format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data", ErrInvalidTopics)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopics, err)
	}

	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate normalizes every topic in place and checks required fields and
// id uniqueness.
func (tf *TopicsFile) Validate() error {
	seen := make(map[string]int, len(tf.Topics))
	for i := range tf.Topics {
		t := tf.Topics[i].normalized()
		missing := ""
		switch {
		case t.ID == "":
			missing = "id"
		case t.Title == "":
			missing = "title"
		case t.WebhookEnv == "":
			missing = "webhook_env"
		case t.Query == "":
			missing = "query"
		}
		if missing != "" {
			return fmt.Errorf("%w: topic #%d (%q) missing required field %q", ErrInvalidTopics, i+1, t.ID, missing)
		}
		if t.MaxResults < 0 {
			return fmt.Errorf("%w: topic %q: max_results must be >= 0", ErrInvalidTopics, t.ID)
		}
		if prev, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate topic id %q (#%d and #%d)", ErrInvalidTopics, t.ID, prev, i+1)
		}
		seen[t.ID] = i + 1
		tf.Topics[i] = t
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arxivrelay/internal/config"
)

func mapLookup(m map[string]string) config.Lookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	empty := filepath.Join(dir, "topics.yml")
	if err := os.WriteFile(empty, []byte("topics: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want int
	}{
		{"no args", nil, nil, exitUsage},
		{"two args", []string{"a.yml", "b.yml"}, nil, exitUsage},
		{"unknown flag", []string{"-nope", empty}, nil, exitUsage},
		{"missing file", []string{filepath.Join(dir, "missing.yml")}, nil, exitConfig},
		{"bad setting", []string{empty}, map[string]string{"TIME_FRAME": "soon"}, exitConfig},
		{"empty topics", []string{empty}, nil, exitOK},
		{"once overrides schedule", []string{"-once", empty}, map[string]string{"SCHEDULE": "@every 1h"}, exitOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stderr bytes.Buffer
			got := run(context.Background(), tt.args, mapLookup(tt.env), &stderr)
			if got != tt.want {
				t.Fatalf("run(%v) = %d, want %d (stderr %q)", tt.args, got, tt.want, stderr.String())
			}
			if tt.want == exitUsage && !strings.Contains(stderr.String(), "usage:") && !strings.Contains(stderr.String(), "flag provided") {
				t.Fatalf("stderr = %q, want usage", stderr.String())
			}
		})
	}
}

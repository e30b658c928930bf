package relay

import (
	"errors"
	"testing"
	"time"
)

func TestSelectMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		configured Mode
		window     Window
		filtered   int
		want       Mode
	}{
		{"auto unbounded empty", ModeAuto, AllTime(), 0, ModeSummary},
		{"auto one day few", ModeAuto, LastDays(1), 5, ModePerItem},
		{"auto one day threshold", ModeAuto, LastDays(1), 30, ModeSummary},
		{"auto one day just below", ModeAuto, LastDays(1), 29, ModePerItem},
		{"auto wide window", ModeAuto, LastDays(30), 1, ModeSummary},
		{"auto 29 days", ModeAuto, LastDays(29), 1, ModePerItem},
		{"explicit per item wins", ModePerItem, AllTime(), 1000, ModePerItem},
		{"explicit summary wins", ModeSummary, LastDays(1), 1, ModeSummary},
	}
	for _, tt := range tests {
		if got := SelectMode(tt.configured, tt.window, tt.filtered); got != tt.want {
			t.Fatalf("%s: SelectMode = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"per_paper", ModePerItem},
		{"per-item", ModePerItem},
		{"PER_ITEM", ModePerItem},
		{" summary ", ModeSummary},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseMode("digest"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("ParseMode(digest) err = %v, want ErrUnknownMode", err)
	}
}

func TestWindowCutoff(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2026, 10, 18, 21, 0, 0, 0, loc)

	c := LastDays(1).Cutoff(now)
	want := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if !c.Bounded() || !c.Time().Equal(want) || c.Time().Location() != time.UTC {
		t.Fatalf("cutoff = %v, want %v UTC", c.Time(), want)
	}
	if AllTime().Cutoff(now).Bounded() {
		t.Fatal("AllTime cutoff should be unbounded")
	}
	if got := LastDays(7).String(); got != "last 7 days" {
		t.Fatalf("String = %q", got)
	}
	if got := AllTime().String(); got != "ALL (no date filter)" {
		t.Fatalf("String = %q", got)
	}
}

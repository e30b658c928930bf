package schedule

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
		cron     string
	}{
		{name: "cron", raw: "0 7 * * *", kind: SpecCron, source: "cron", cron: "0 7 * * *"},
		{name: "cron with seconds", raw: "30 0 7 * * *", kind: SpecCron, source: "cron", cron: "30 0 7 * * *"},
		{name: "prefixed cron", raw: "cron:@daily", kind: SpecCron, source: "cron", cron: "@daily"},
		{name: "descriptor", raw: "@every 6h", kind: SpecCron, source: "cron", cron: "@every 6h"},
		{name: "duration", raw: "6h", kind: SpecInterval, source: "duration", duration: 6 * time.Hour, cron: "@every 6h0m0s"},
		{name: "prefixed interval", raw: "interval:45m", kind: SpecInterval, source: "duration", duration: 45 * time.Minute, cron: "@every 45m0s"},
		{name: "every prefix hhmm", raw: "every:00:30", kind: SpecInterval, source: "hhmm", duration: 30 * time.Minute, cron: "@every 30m0s"},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute, cron: "@every 1h30m0s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if got.CronSpec() != tt.cron {
				t.Fatalf("CronSpec = %q, want %q", got.CronSpec(), tt.cron)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "0s", "-5m", "01:75", "00:00", "cron:", "interval:", "61 * * * *", "cron:bogus"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) expected error", raw)
		}
	}
}

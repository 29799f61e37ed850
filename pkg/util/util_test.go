package util

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%s) failed: %v", name, err)
	}
	return loc
}

func TestDayRange(t *testing.T) {
	oslo := mustLoad(t, "Europe/Oslo")

	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "winter",
			now:       time.Date(2025, 1, 14, 6, 30, 0, 0, time.UTC),
			wantStart: "2025-01-14T00:00:00+01:00",
			wantEnd:   "2025-01-14T23:59:59+01:00",
		},
		{
			name:      "utc instant on the previous day",
			now:       time.Date(2025, 7, 1, 22, 30, 0, 0, time.UTC),
			wantStart: "2025-07-02T00:00:00+02:00",
			wantEnd:   "2025-07-02T23:59:59+02:00",
		},
		{
			name:      "dst change",
			now:       time.Date(2025, 3, 30, 12, 0, 0, 0, oslo),
			wantStart: "2025-03-30T00:00:00+01:00",
			wantEnd:   "2025-03-30T23:59:59+02:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DayRange(tt.now, oslo)
			if start != tt.wantStart {
				t.Errorf("start = %s, want %s", start, tt.wantStart)
			}
			if end != tt.wantEnd {
				t.Errorf("end = %s, want %s", end, tt.wantEnd)
			}
		})
	}
}

func TestPrettyFormats(t *testing.T) {
	oslo := mustLoad(t, "Europe/Oslo")
	ts := time.Date(2025, 11, 3, 8, 5, 0, 0, time.UTC)

	if got := DayHeader(ts, oslo); got != "Mon 3 Nov" {
		t.Errorf("DayHeader = %q", got)
	}
	if got := PrettyTime(ts, oslo); got != "09:05" {
		t.Errorf("PrettyTime = %q", got)
	}
	if got := Weekday(ts, oslo); got != "Monday" {
		t.Errorf("Weekday = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 120); got != "short" {
		t.Errorf("Truncate kept %q", got)
	}

	long := strings.Repeat("å", 200)
	got := Truncate(long, 120)
	if n := utf8.RuneCountInString(got); n != 120 {
		t.Errorf("Truncate length = %d runes, want 120", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Truncate missing ellipsis: %q", got)
	}

	if got := Truncate("hello world", 7); got != "hello…" {
		t.Errorf("Truncate did not trim trailing space: %q", got)
	}
}

func TestSection(t *testing.T) {
	got := Section("🧰 Tasks Today", []string{"Write report (Work)", "", "Call mum"})
	want := "🧰 Tasks Today\n• Write report (Work)\n• Call mum"
	if got != want {
		t.Errorf("Section = %q, want %q", got, want)
	}

	if got := Section("📥 Inbox Today", nil); got != "📥 Inbox Today\n(none)" {
		t.Errorf("empty Section = %q", got)
	}
	if got := Section("x", []string{""}); got != "x\n(none)" {
		t.Errorf("blank-only Section = %q", got)
	}
}

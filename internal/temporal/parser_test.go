package temporal

import (
	"testing"
	"time"
)

// refNow is a Wednesday: 2024-03-13 15:30 UTC.
var refNow = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

func fixedParser() *Parser {
	return NewWithClock(func() time.Time { return refNow })
}

func ts(year int, month time.Month, day, h, m, s, ms int) time.Time {
	return time.Date(year, month, day, h, m, s, ms*1000000, time.UTC)
}

func TestParse_LastMonth(t *testing.T) {
	cleaned, r := fixedParser().Parse("What did I work on last month?")

	if r == nil {
		t.Fatal("expected a temporal range")
	}
	if cleaned != "What did I work on ?" {
		t.Errorf("cleaned query = %q, want %q", cleaned, "What did I work on ?")
	}
	if !r.IsRelative {
		t.Error("last month should be relative")
	}
	wantStart := ts(2024, time.February, 1, 0, 0, 0, 0)
	wantEnd := ts(2024, time.February, 29, 23, 59, 59, 999)
	if !r.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", r.Start, wantStart)
	}
	if !r.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", r.End, wantEnd)
	}
}

func TestParse_Patterns(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantCleaned string
		wantStart   time.Time
		wantEnd     time.Time
		wantRel     bool
	}{
		{
			name:        "last weekday",
			query:       "notes from last Tuesday standup",
			wantCleaned: "notes from  standup", // interior gap left by phrase removal
			wantStart:   ts(2024, time.March, 12, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 12, 23, 59, 59, 999),
			wantRel:     true,
		},
		{
			name:        "this month",
			query:       "meetings this month",
			wantCleaned: "meetings",
			wantStart:   ts(2024, time.March, 1, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 31, 23, 59, 59, 999),
			wantRel:     true,
		},
		{
			name:        "last week starts sunday",
			query:       "what happened last week",
			wantCleaned: "what happened",
			wantStart:   ts(2024, time.March, 3, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 9, 23, 59, 59, 999),
			wantRel:     true,
		},
		{
			name:        "this week",
			query:       "this week summary",
			wantCleaned: "summary",
			wantStart:   ts(2024, time.March, 10, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 13, 23, 59, 59, 999),
			wantRel:     true,
		},
		{
			name:        "last N days",
			query:       "decisions in the last 30 days",
			wantCleaned: "decisions in the",
			wantStart:   ts(2024, time.February, 12, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 13, 23, 59, 59, 999),
			wantRel:     true,
		},
		{
			name:        "quarter",
			query:       "roadmap Q1 2024",
			wantCleaned: "roadmap",
			wantStart:   ts(2024, time.January, 1, 0, 0, 0, 0),
			wantEnd:     ts(2024, time.March, 31, 23, 59, 59, 999),
			wantRel:     false,
		},
		{
			name:        "month year",
			query:       "expenses December 2023",
			wantCleaned: "expenses",
			wantStart:   ts(2023, time.December, 1, 0, 0, 0, 0),
			wantEnd:     ts(2023, time.December, 31, 23, 59, 59, 999),
			wantRel:     false,
		},
		{
			name:        "bare year",
			query:       "projects 2023",
			wantCleaned: "projects",
			wantStart:   ts(2023, time.January, 1, 0, 0, 0, 0),
			wantEnd:     ts(2023, time.December, 31, 23, 59, 59, 999),
			wantRel:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, r := fixedParser().Parse(tt.query)
			if r == nil {
				t.Fatal("expected a temporal range")
			}
			if cleaned != tt.wantCleaned {
				t.Errorf("cleaned = %q, want %q", cleaned, tt.wantCleaned)
			}
			if !r.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", r.Start, tt.wantStart)
			}
			if !r.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", r.End, tt.wantEnd)
			}
			if r.IsRelative != tt.wantRel {
				t.Errorf("isRelative = %v, want %v", r.IsRelative, tt.wantRel)
			}
			if r.Start.After(*r.End) {
				t.Error("start after end")
			}
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"no temporal phrase", "what did Alice say about the budget"},
		{"year below 2000", "the summer of 1969"},
		{"year too far ahead", "plans for 2150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, r := fixedParser().Parse(tt.query)
			if r != nil {
				t.Errorf("expected no range, got %+v", r)
			}
			if cleaned != tt.query {
				t.Errorf("cleaned = %q, want original %q", cleaned, tt.query)
			}
		})
	}
}

// Weekday patterns must win over the bare-year fallback.
func TestParse_PriorityOrder(t *testing.T) {
	cleaned, r := fixedParser().Parse("last tuesday 2023 review")
	if r == nil {
		t.Fatal("expected a temporal range")
	}
	if r.RelativeText != "last tuesday" {
		t.Errorf("matched %q, want %q", r.RelativeText, "last tuesday")
	}
	if cleaned != "2023 review" {
		t.Errorf("cleaned = %q, want %q", cleaned, "2023 review")
	}
}

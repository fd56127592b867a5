package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	if err := Validate("FREQ=DAILY"); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	err := Validate("FREQ=SOMETIMES")
	if err == nil {
		t.Fatal("expected error for bad rule")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestEvaluateDaily(t *testing.T) {
	seriesStart := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	seriesEnd := seriesStart.Add(30 * time.Minute)
	windowStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 5)

	starts, err := Evaluate("FREQ=DAILY", seriesStart, seriesEnd, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(starts) != 5 {
		t.Fatalf("got %d occurrences, want 5", len(starts))
	}
	for i, s := range starts {
		want := seriesStart.AddDate(0, 0, i)
		if !s.Equal(want) {
			t.Errorf("occurrence %d = %v, want %v", i, s, want)
		}
	}
}

func TestEvaluateHalfOpenWindow(t *testing.T) {
	seriesStart := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	seriesEnd := seriesStart.Add(time.Hour)

	// Window ends exactly at an occurrence start: that occurrence is out.
	windowStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

	starts, err := Evaluate("FREQ=DAILY", seriesStart, seriesEnd, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(starts) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(starts))
	}
}

func TestEvaluateStraddlingOccurrence(t *testing.T) {
	// Occurrence starts before the window but overlaps into it.
	seriesStart := time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC)
	seriesEnd := seriesStart.Add(2 * time.Hour)
	windowStart := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(12 * time.Hour)

	starts, err := Evaluate("FREQ=WEEKLY", seriesStart, seriesEnd, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(starts) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(starts))
	}
	if !starts[0].Equal(seriesStart) {
		t.Errorf("start = %v, want %v", starts[0], seriesStart)
	}
}

func TestEvaluateEmptyWindow(t *testing.T) {
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	starts, err := Evaluate("FREQ=DAILY", at, at.Add(time.Hour), at, at)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(starts) != 0 {
		t.Fatalf("got %d occurrences, want 0", len(starts))
	}
}

func TestEvaluateBadRule(t *testing.T) {
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	_, err := Evaluate("FREQ=", at, at.Add(time.Hour), at, at.AddDate(0, 0, 7))
	if err == nil {
		t.Fatal("expected error for malformed rule")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestEvaluateWeekly(t *testing.T) {
	seriesStart := time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC) // a Monday
	seriesEnd := seriesStart.Add(time.Hour)
	windowStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	starts, err := Evaluate("FREQ=WEEKLY;BYDAY=MO", seriesStart, seriesEnd, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(starts) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(starts))
	}
	for _, s := range starts {
		if s.Weekday() != time.Monday {
			t.Errorf("occurrence %v is not a Monday", s)
		}
	}
}

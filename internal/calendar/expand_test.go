package calendar

import (
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

func dailySeries() model.CalendarEvent {
	return model.CalendarEvent{
		ID:        1,
		Title:     "Standup",
		StartTime: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC),
		RRule:     "FREQ=DAILY",
	}
}

func weekWindow() (time.Time, time.Time) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 5)
}

func TestExpandNonRecurring(t *testing.T) {
	ev := model.CalendarEvent{
		ID:        7,
		Title:     "Dentist",
		StartTime: time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	}
	ws, we := weekWindow()

	occs, err := Expand(ev, nil, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if occs[0].OriginalStart != nil {
		t.Error("non-recurring occurrence should have nil OriginalStart")
	}

	// Outside the window, nothing.
	occs, err = Expand(ev, nil, we, we.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 0 {
		t.Fatalf("got %d occurrences, want 0", len(occs))
	}
}

func TestExpandDaily(t *testing.T) {
	ws, we := weekWindow()

	occs, err := Expand(dailySeries(), nil, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 5 {
		t.Fatalf("got %d occurrences, want 5", len(occs))
	}
	for i, occ := range occs {
		wantStart := time.Date(2025, 3, 3+i, 9, 0, 0, 0, time.UTC)
		if !occ.Start.Equal(wantStart) {
			t.Errorf("occurrence %d start = %v, want %v", i, occ.Start, wantStart)
		}
		if occ.End.Sub(occ.Start) != 15*time.Minute {
			t.Errorf("occurrence %d duration = %v, want 15m", i, occ.End.Sub(occ.Start))
		}
		if occ.OriginalStart == nil || !occ.OriginalStart.Equal(wantStart) {
			t.Errorf("occurrence %d OriginalStart = %v, want %v", i, occ.OriginalStart, wantStart)
		}
	}
}

func TestExpandDeletedOccurrence(t *testing.T) {
	ws, we := weekWindow()
	deleted := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	exceptions := []model.EventException{
		{EventID: 1, OriginalStart: deleted, IsDeleted: true},
	}

	occs, err := Expand(dailySeries(), exceptions, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(occs))
	}
	for _, occ := range occs {
		if occ.Start.Equal(deleted) {
			t.Errorf("deleted occurrence %v still present", deleted)
		}
	}
}

func TestExpandOverriddenOccurrence(t *testing.T) {
	ws, we := weekWindow()
	original := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	moved := time.Date(2025, 3, 4, 11, 30, 0, 0, time.UTC)
	title := "Standup (moved)"
	exceptions := []model.EventException{
		{EventID: 1, OriginalStart: original, Title: &title, StartTime: &moved},
	}

	occs, err := Expand(dailySeries(), exceptions, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 5 {
		t.Fatalf("got %d occurrences, want 5", len(occs))
	}

	var found *Occurrence
	for i := range occs {
		if occs[i].OriginalStart != nil && occs[i].OriginalStart.Equal(original) {
			found = &occs[i]
		}
	}
	if found == nil {
		t.Fatal("overridden occurrence missing")
	}
	if !found.Start.Equal(moved) {
		t.Errorf("start = %v, want %v", found.Start, moved)
	}
	// A start-only override keeps the series duration.
	if found.End.Sub(found.Start) != 15*time.Minute {
		t.Errorf("duration = %v, want 15m", found.End.Sub(found.Start))
	}
	if found.Title != title {
		t.Errorf("title = %q, want %q", found.Title, title)
	}
}

func TestExpandOverrideMovesIntoWindow(t *testing.T) {
	// The original start is inside the queried window, so the exception is
	// found even though its new start differs.
	ws, we := weekWindow()
	original := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	moved := time.Date(2025, 3, 6, 20, 0, 0, 0, time.UTC)
	exceptions := []model.EventException{
		{EventID: 1, OriginalStart: original, StartTime: &moved},
	}

	occs, err := Expand(dailySeries(), exceptions, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	// Output stays sorted by actual start.
	for i := 1; i < len(occs); i++ {
		if occs[i].Start.Before(occs[i-1].Start) {
			t.Fatal("occurrences not sorted by start")
		}
	}
}

func TestExpandRecurrenceEnd(t *testing.T) {
	ev := dailySeries()
	end := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	ev.RecurrenceEnd = &end
	ws, we := weekWindow()

	occs, err := Expand(ev, nil, ws, we)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// March 3, 4, 5. The occurrence starting exactly at the recurrence end
	// is still included; later ones are not.
	if len(occs) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occs))
	}
	if !occs[len(occs)-1].Start.Equal(end) {
		t.Errorf("last start = %v, want %v", occs[len(occs)-1].Start, end)
	}
}

func TestExpandBadRule(t *testing.T) {
	ev := dailySeries()
	ev.RRule = "FREQ=NOPE"
	ws, we := weekWindow()

	if _, err := Expand(ev, nil, ws, we); err == nil {
		t.Fatal("expected error for malformed rule")
	}
}

func TestExpandEmptyWindow(t *testing.T) {
	ws, _ := weekWindow()

	occs, err := Expand(dailySeries(), nil, ws, ws)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 0 {
		t.Fatalf("got %d occurrences, want 0", len(occs))
	}
}

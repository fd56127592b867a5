package calendar

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

func setupMutator(t *testing.T) (*Mutator, *store.CalendarEventStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	es := store.NewCalendarEventStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMutator(es, logger), es, db
}

func createWeekly(t *testing.T, es *store.CalendarEventStore) *model.CalendarEvent {
	t.Helper()
	ev, err := es.Create(context.Background(), store.SeriesParams{
		Title:     "Swim Practice",
		Color:     "#3B82F6",
		StartTime: time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		RRule:     "FREQ=WEEKLY;BYDAY=MO",
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	return ev
}

func TestEditThisOccurrence(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	occ := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	moved := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	if _, err := m.Edit(ctx, ev.ID, ScopeThisOccurrence, &occ, EditParams{StartTime: &moved}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// The series itself is untouched; the change lives in an exception.
	got, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.StartTime.Equal(ev.StartTime) {
		t.Errorf("series start changed: %v", got.StartTime)
	}
	xs, err := es.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(xs))
	}
	if xs[0].StartTime == nil || !xs[0].StartTime.Equal(moved) {
		t.Errorf("exception start = %v, want %v", xs[0].StartTime, moved)
	}
}

func TestEditThisOccurrenceRequiresOriginalStart(t *testing.T) {
	m, es, _ := setupMutator(t)
	ev := createWeekly(t, es)

	_, err := m.Edit(context.Background(), ev.ID, ScopeThisOccurrence, nil, EditParams{})
	if err != ErrOriginalStartRequired {
		t.Fatalf("err = %v, want ErrOriginalStartRequired", err)
	}
}

func TestEditThisAndFuture(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	// Exceptions on both sides of the split.
	before := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	after := time.Date(2025, 3, 24, 16, 0, 0, 0, time.UTC)
	for _, occ := range []time.Time{before, after} {
		if err := es.UpsertException(ctx, ev.ID, occ, store.ExceptionParams{IsDeleted: true}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	splitAt := time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC)
	title := "Dive Practice"
	sibling, err := m.Edit(ctx, ev.ID, ScopeThisAndFuture, &splitAt, EditParams{Title: &title})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if sibling.ID == ev.ID {
		t.Fatal("expected a new sibling series")
	}
	if sibling.Title != title {
		t.Errorf("sibling title = %q, want %q", sibling.Title, title)
	}
	if !sibling.StartTime.Equal(splitAt) {
		t.Errorf("sibling start = %v, want %v", sibling.StartTime, splitAt)
	}
	// Duration carries over when no end override is given.
	if sibling.Duration() != time.Hour {
		t.Errorf("sibling duration = %v, want 1h", sibling.Duration())
	}
	if sibling.ParentEventID == nil || *sibling.ParentEventID != ev.ID {
		t.Errorf("parent_event_id = %v, want %d", sibling.ParentEventID, ev.ID)
	}

	orig, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if orig.Title != "Swim Practice" {
		t.Errorf("original title changed: %q", orig.Title)
	}
	if orig.RecurrenceEnd == nil || !orig.RecurrenceEnd.Equal(splitAt.Add(-time.Second)) {
		t.Errorf("original recurrence end = %v", orig.RecurrenceEnd)
	}

	// Pre-split exception survives on the original; post-split one is gone.
	xs, err := es.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 || !xs[0].OriginalStart.Equal(before) {
		t.Errorf("original exceptions = %+v, want only %v", xs, before)
	}
	xs, err = es.ListExceptions(ctx, sibling.ID)
	if err != nil {
		t.Fatalf("list sibling exceptions: %v", err)
	}
	if len(xs) != 0 {
		t.Errorf("sibling has %d exceptions, want 0", len(xs))
	}
}

func TestEditEntireSeries(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	title := "Water Polo"
	got, err := m.Edit(ctx, ev.ID, ScopeEntireSeries, nil, EditParams{Title: &title})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.ID != ev.ID {
		t.Error("entire-series edit should keep the same series")
	}
	if got.Title != title {
		t.Errorf("title = %q, want %q", got.Title, title)
	}
	// Unset fields keep their values.
	if got.RRule != ev.RRule {
		t.Errorf("rrule changed: %q", got.RRule)
	}
}

func TestEditNonRecurringForcesEntireSeries(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()

	ev, err := es.Create(ctx, store.SeriesParams{
		Title:     "Dentist",
		StartTime: time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Orthodontist"
	got, err := m.Edit(ctx, ev.ID, ScopeThisOccurrence, nil, EditParams{Title: &title})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.Title != title {
		t.Errorf("title = %q, want %q", got.Title, title)
	}
	xs, err := es.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 0 {
		t.Errorf("non-recurring edit produced %d exceptions", len(xs))
	}
}

func TestEditSeriesNotFound(t *testing.T) {
	m, _, _ := setupMutator(t)

	_, err := m.Edit(context.Background(), 999, ScopeEntireSeries, nil, EditParams{})
	if err != ErrSeriesNotFound {
		t.Fatalf("err = %v, want ErrSeriesNotFound", err)
	}
}

func TestDeleteThisOccurrence(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	occ := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	if err := m.Delete(ctx, ev.ID, ScopeThisOccurrence, &occ); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("series deleted, want tombstone only")
	}
	xs, err := es.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 || !xs[0].IsDeleted {
		t.Errorf("exceptions = %+v, want one tombstone", xs)
	}
}

func TestDeleteThisAndFuture(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	splitAt := time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC)
	if err := m.Delete(ctx, ev.ID, ScopeThisAndFuture, &splitAt); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RecurrenceEnd == nil || !got.RecurrenceEnd.Equal(splitAt.Add(-time.Second)) {
		t.Errorf("recurrence end = %v, want %v", got.RecurrenceEnd, splitAt.Add(-time.Second))
	}
}

func TestDeleteEntireSeries(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()
	ev := createWeekly(t, es)

	if err := m.Delete(ctx, ev.ID, ScopeEntireSeries, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("series still present")
	}
}

func TestDeleteNonRecurringAnyScope(t *testing.T) {
	m, es, _ := setupMutator(t)
	ctx := context.Background()

	ev, err := es.Create(ctx, store.SeriesParams{
		Title:     "Dentist",
		StartTime: time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	occ := ev.StartTime
	if err := m.Delete(ctx, ev.ID, ScopeThisOccurrence, &occ); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := es.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("non-recurring delete should remove the event entirely")
	}
}

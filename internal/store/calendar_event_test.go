package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Ensure foreign keys are enforced (modernc/sqlite may not honor DSN param for :memory:)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestMember(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	m, err := NewMemberStore(db).Create(MemberParams{
		Name:         name,
		Color:        "#3B82F6",
		AvatarEmoji:  "🙂",
		TimeZone:     "UTC",
		DayStartHour: 8,
		DayEndHour:   21,
	})
	if err != nil {
		t.Fatalf("create member %q: %v", name, err)
	}
	return m.ID
}

func weeklyParams(memberIDs ...int64) SeriesParams {
	p := SeriesParams{
		Title:     "Piano Lesson",
		Color:     "#10B981",
		StartTime: time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
		RRule:     "FREQ=WEEKLY;BYDAY=MO",
	}
	for _, id := range memberIDs {
		p.Members = append(p.Members, model.EventMember{MemberID: id, Role: model.RoleInvolved})
	}
	return p
}

func TestEventCreateAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")

	ev, err := s.Create(ctx, weeklyParams(alice))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if ev.Title != "Piano Lesson" {
		t.Errorf("title = %q, want %q", ev.Title, "Piano Lesson")
	}
	if ev.RRule != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("rrule = %q", ev.RRule)
	}
	if len(ev.Members) != 1 || ev.Members[0].MemberID != alice {
		t.Fatalf("members = %+v, want alice involved", ev.Members)
	}
	if ev.Members[0].Role != model.RoleInvolved {
		t.Errorf("role = %q, want involved", ev.Members[0].Role)
	}

	got, err := s.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Title != ev.Title {
		t.Errorf("round trip failed: %+v", got)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)

	got, err := s.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestEventListOverlapping(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()

	// One-off inside the window.
	if _, err := s.Create(ctx, SeriesParams{
		Title:     "Dentist",
		StartTime: time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// One-off before the window.
	if _, err := s.Create(ctx, SeriesParams{
		Title:     "Old",
		StartTime: time.Date(2025, 2, 1, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 2, 1, 15, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Open-ended weekly series that started long before the window.
	if _, err := s.Create(ctx, SeriesParams{
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		RRule:     "FREQ=DAILY",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Recurring series whose recurrence already ended.
	ended := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.Create(ctx, SeriesParams{
		Title:         "Finished",
		StartTime:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		RRule:         "FREQ=WEEKLY",
		RecurrenceEnd: &ended,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	events, err := s.ListOverlapping(ctx,
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	titles := map[string]bool{}
	for _, e := range events {
		titles[e.Title] = true
	}
	if !titles["Dentist"] || !titles["Standup"] {
		t.Errorf("wrong events returned: %v", titles)
	}
}

func TestEventListInvolvingExcludesAware(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")
	bob := createTestMember(t, db, "Bob")

	p := weeklyParams()
	p.Members = []model.EventMember{
		{MemberID: alice, Role: model.RoleInvolved},
		{MemberID: bob, Role: model.RoleAware},
	}
	if _, err := s.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	windowStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	got, err := s.ListInvolving(ctx, alice, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("list involving: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("alice: got %d events, want 1", len(got))
	}

	got, err = s.ListInvolving(ctx, bob, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("list involving: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("aware bob: got %d events, want 0", len(got))
	}
}

func TestEventUpdateSyncsMembers(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")
	bob := createTestMember(t, db, "Bob")

	ev, err := s.Create(ctx, weeklyParams(alice))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p := weeklyParams()
	p.Title = "Guitar Lesson"
	p.Members = []model.EventMember{{MemberID: bob, Role: model.RoleAware}}
	updated, err := s.Update(ctx, ev.ID, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Guitar Lesson" {
		t.Errorf("title = %q", updated.Title)
	}
	if len(updated.Members) != 1 || updated.Members[0].MemberID != bob || updated.Members[0].Role != model.RoleAware {
		t.Errorf("members = %+v, want bob aware only", updated.Members)
	}
}

func TestUpsertException(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()

	ev, err := s.Create(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	occ := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

	title := "Make-up Lesson"
	if err := s.UpsertException(ctx, ev.ID, occ, ExceptionParams{Title: &title}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	xs, err := s.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(xs))
	}
	if xs[0].Title == nil || *xs[0].Title != title {
		t.Errorf("title override = %v", xs[0].Title)
	}
	if !xs[0].OriginalStart.Equal(occ) {
		t.Errorf("original start = %v, want %v", xs[0].OriginalStart, occ)
	}

	// A second upsert for the same occurrence replaces, not duplicates.
	// Deletion clears the override fields.
	if err := s.UpsertException(ctx, ev.ID, occ, ExceptionParams{IsDeleted: true, Title: &title}); err != nil {
		t.Fatalf("upsert delete: %v", err)
	}
	xs, err = s.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 {
		t.Fatalf("got %d exceptions after re-upsert, want 1", len(xs))
	}
	if !xs[0].IsDeleted {
		t.Error("exception should be a deletion")
	}
	if xs[0].Title != nil {
		t.Error("deletion should clear override fields")
	}
}

func TestEventDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")

	ev, err := s.Create(ctx, weeklyParams(alice))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	occ := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	if err := s.UpsertException(ctx, ev.ID, occ, ExceptionParams{IsDeleted: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM calendar_event_exceptions WHERE event_id = ?`, ev.ID).Scan(&count); err != nil {
		t.Fatalf("count exceptions: %v", err)
	}
	if count != 0 {
		t.Errorf("exceptions not cascaded: %d left", count)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM calendar_event_members WHERE event_id = ?`, ev.ID).Scan(&count); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 0 {
		t.Errorf("members not cascaded: %d left", count)
	}
}

func TestTruncate(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()

	ev, err := s.Create(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	splitAt := time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC)
	after := time.Date(2025, 3, 24, 16, 0, 0, 0, time.UTC)
	for _, occ := range []time.Time{before, splitAt, after} {
		if err := s.UpsertException(ctx, ev.ID, occ, ExceptionParams{IsDeleted: true}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	if err := s.Truncate(ctx, ev.ID, splitAt); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	got, err := s.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RecurrenceEnd == nil {
		t.Fatal("recurrence end not set")
	}
	if !got.RecurrenceEnd.Equal(splitAt.Add(-time.Second)) {
		t.Errorf("recurrence end = %v, want %v", got.RecurrenceEnd, splitAt.Add(-time.Second))
	}

	xs, err := s.ListExceptions(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(xs) != 1 {
		t.Fatalf("got %d exceptions, want 1 (only the pre-split one)", len(xs))
	}
	if !xs[0].OriginalStart.Equal(before) {
		t.Errorf("surviving exception = %v, want %v", xs[0].OriginalStart, before)
	}
}

func TestSplit(t *testing.T) {
	db := setupTestDB(t)
	s := NewCalendarEventStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")
	bob := createTestMember(t, db, "Bob")

	p := weeklyParams()
	p.Members = []model.EventMember{
		{MemberID: alice, Role: model.RoleInvolved},
		{MemberID: bob, Role: model.RoleAware},
	}
	ev, err := s.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	splitAt := time.Date(2025, 3, 17, 16, 0, 0, 0, time.UTC)
	np := p
	np.Title = "Piano Lesson (new teacher)"
	np.StartTime = splitAt
	np.EndTime = splitAt.Add(time.Hour)
	sibling, err := s.Split(ctx, ev.ID, splitAt, np)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	if sibling.ID == ev.ID {
		t.Fatal("split returned the original series")
	}
	if sibling.ParentEventID == nil || *sibling.ParentEventID != ev.ID {
		t.Errorf("parent_event_id = %v, want %d", sibling.ParentEventID, ev.ID)
	}
	if sibling.Title != "Piano Lesson (new teacher)" {
		t.Errorf("sibling title = %q", sibling.Title)
	}
	if len(sibling.Members) != 2 {
		t.Fatalf("sibling members = %d, want 2", len(sibling.Members))
	}
	roles := map[int64]model.MemberRole{}
	for _, m := range sibling.Members {
		roles[m.MemberID] = m.Role
	}
	if roles[alice] != model.RoleInvolved || roles[bob] != model.RoleAware {
		t.Errorf("sibling roles = %v, roles not preserved", roles)
	}

	orig, err := s.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if orig.RecurrenceEnd == nil || !orig.RecurrenceEnd.Equal(splitAt.Add(-time.Second)) {
		t.Errorf("original not truncated: recurrence_end = %v", orig.RecurrenceEnd)
	}
}

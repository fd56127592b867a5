package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

func TestFeedSubscriptionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	s := NewFeedStore(db)
	alice := createTestMember(t, db, "Alice")

	sub, err := s.CreateSubscription("tok-1", alice, "School Calendar", "https://school.example.com/cal.ics")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if !sub.Enabled {
		t.Error("new subscription should be enabled")
	}
	if sub.LastSynced != nil {
		t.Error("new subscription should have no sync time")
	}

	updated, err := s.UpdateSubscription(sub.ID, "School", sub.URL, false)
	if err != nil {
		t.Fatalf("update subscription: %v", err)
	}
	if updated.Name != "School" || updated.Enabled {
		t.Errorf("update not applied: %+v", updated)
	}

	enabled, err := s.ListEnabledSubscriptions()
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("disabled subscription still listed as enabled")
	}

	syncedAt := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	if err := s.MarkSynced(sub.ID, syncedAt, "boom"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	got, err := s.GetSubscription(sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastSynced == nil || !got.LastSynced.Equal(syncedAt) {
		t.Errorf("last synced = %v, want %v", got.LastSynced, syncedAt)
	}
	if got.LastError != "boom" {
		t.Errorf("last error = %q", got.LastError)
	}

	if err := s.DeleteSubscription(sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetSubscription(sub.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("subscription still present after delete")
	}
}

func TestReplaceEvents(t *testing.T) {
	db := setupTestDB(t)
	s := NewFeedStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")

	sub, err := s.CreateSubscription("tok-1", alice, "School", "https://school.example.com/cal.ics")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	first := []model.ExternalEvent{
		{UID: "a@x", Title: "Assembly", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour)},
		{UID: "b@x", Title: "Field Trip", StartTime: day.Add(12 * time.Hour), EndTime: day.Add(15 * time.Hour)},
	}
	if err := s.ReplaceEvents(ctx, sub, first); err != nil {
		t.Fatalf("replace events: %v", err)
	}

	got, err := s.ListEventsForMember(ctx, alice, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].MemberID != alice {
		t.Errorf("member id = %d, want %d", got[0].MemberID, alice)
	}

	// A second sync replaces rather than accumulates.
	second := []model.ExternalEvent{
		{UID: "c@x", Title: "Early Dismissal", StartTime: day.Add(13 * time.Hour), EndTime: day.Add(14 * time.Hour)},
	}
	if err := s.ReplaceEvents(ctx, sub, second); err != nil {
		t.Fatalf("replace events: %v", err)
	}
	got, err = s.ListEventsForMember(ctx, alice, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Early Dismissal" {
		t.Errorf("events = %+v, want only the new one", got)
	}
}

func TestListEventsForMemberWindow(t *testing.T) {
	db := setupTestDB(t)
	s := NewFeedStore(db)
	ctx := context.Background()
	alice := createTestMember(t, db, "Alice")

	sub, err := s.CreateSubscription("tok-1", alice, "School", "https://school.example.com/cal.ics")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	events := []model.ExternalEvent{
		{UID: "in@x", Title: "Inside", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour)},
		{UID: "edge@x", Title: "Ends At Start", StartTime: day.Add(-2 * time.Hour), EndTime: day},
		{UID: "out@x", Title: "Next Week", StartTime: day.AddDate(0, 0, 7), EndTime: day.AddDate(0, 0, 7).Add(time.Hour)},
	}
	if err := s.ReplaceEvents(ctx, sub, events); err != nil {
		t.Fatalf("replace events: %v", err)
	}

	got, err := s.ListEventsForMember(ctx, alice, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Inside" {
		t.Errorf("events = %+v, want only the overlapping one", got)
	}
}

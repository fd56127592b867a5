package store

import (
	"testing"
)

func TestPushSubscribeUpserts(t *testing.T) {
	db := setupTestDB(t)
	s := NewPushStore(db)
	alice := createTestMember(t, db, "Alice")
	bob := createTestMember(t, db, "Bob")

	sub, err := s.Subscribe(alice, "https://push.example.com/ep-1", "p256dh", "auth", "phone")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.MemberID != alice || sub.Endpoint != "https://push.example.com/ep-1" {
		t.Errorf("sub = %+v", sub)
	}

	// Re-subscribing the same endpoint reassigns it, not duplicates.
	if _, err := s.Subscribe(bob, "https://push.example.com/ep-1", "p256dh-2", "auth-2", "tablet"); err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if subs, err := s.ListByMember(alice); err != nil || len(subs) != 0 {
		t.Errorf("alice subs = %v (err %v), want none", subs, err)
	}
	subs, err := s.ListByMember(bob)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].P256dhKey != "p256dh-2" {
		t.Errorf("bob subs = %+v", subs)
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	db := setupTestDB(t)
	s := NewPushStore(db)
	alice := createTestMember(t, db, "Alice")

	if _, err := s.Subscribe(alice, "https://push.example.com/ep-1", "k", "a", ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := s.DeleteByEndpoint("https://push.example.com/ep-1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, err := s.ListByMember(alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subs = %+v, want none", subs)
	}
}

func TestMarkSentDedups(t *testing.T) {
	db := setupTestDB(t)
	s := NewPushStore(db)

	fresh, err := s.MarkSent("event-1-1741017600")
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !fresh {
		t.Error("first mark should be fresh")
	}

	fresh, err = s.MarkSent("event-1-1741017600")
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if fresh {
		t.Error("second mark should dedup")
	}

	if err := s.PruneSent(7); err != nil {
		t.Fatalf("prune: %v", err)
	}
}

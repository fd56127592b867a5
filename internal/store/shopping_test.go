package store

import (
	"testing"
	"time"
)

func defaultList(t *testing.T, s *ShoppingStore) int64 {
	t.Helper()
	lists, err := s.ListLists()
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if len(lists) == 0 {
		t.Fatal("no seeded shopping list")
	}
	return lists[0].ID
}

func TestShoppingItemLifecycle(t *testing.T) {
	db := setupTestDB(t)
	s := NewShoppingStore(db)
	alice := createTestMember(t, db, "Alice")
	listID := defaultList(t, s)

	item, err := s.CreateItem(listID, "Milk", "2", "l", "whole", &alice)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Name != "Milk" || item.AddedBy == nil || *item.AddedBy != alice {
		t.Errorf("item = %+v", item)
	}
	if item.Checked {
		t.Error("new item should be unchecked")
	}

	updated, err := s.UpdateItem(item.ID, "Oat Milk", "1", "l", "")
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Name != "Oat Milk" || updated.Quantity != "1" {
		t.Errorf("update not applied: %+v", updated)
	}

	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	checked, err := s.SetChecked(item.ID, true, &alice, now)
	if err != nil {
		t.Fatalf("set checked: %v", err)
	}
	if !checked.Checked || checked.CheckedBy == nil || *checked.CheckedBy != alice {
		t.Errorf("checked item = %+v", checked)
	}
	if checked.CheckedAt == nil || !checked.CheckedAt.Equal(now) {
		t.Errorf("checked at = %v", checked.CheckedAt)
	}

	unchecked, err := s.SetChecked(item.ID, false, nil, now)
	if err != nil {
		t.Fatalf("unset checked: %v", err)
	}
	if unchecked.Checked || unchecked.CheckedBy != nil || unchecked.CheckedAt != nil {
		t.Errorf("uncheck did not clear fields: %+v", unchecked)
	}
}

func TestClearChecked(t *testing.T) {
	db := setupTestDB(t)
	s := NewShoppingStore(db)
	listID := defaultList(t, s)

	a, err := s.CreateItem(listID, "Milk", "", "", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateItem(listID, "Eggs", "", "", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.SetChecked(a.ID, true, nil, time.Now()); err != nil {
		t.Fatalf("set checked: %v", err)
	}

	removed, err := s.ClearChecked(listID)
	if err != nil {
		t.Fatalf("clear checked: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	items, err := s.ListItems(listID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Eggs" {
		t.Errorf("items = %+v, want only Eggs", items)
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// FeedStore persists ICS feed subscriptions and the external busy blocks
// imported from them.
type FeedStore struct {
	db *sql.DB
}

func NewFeedStore(db *sql.DB) *FeedStore {
	return &FeedStore{db: db}
}

const subscriptionCols = `id, token, member_id, name, url, enabled, last_synced, last_error, created_at, updated_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.FeedSubscription, error) {
	var sub model.FeedSubscription
	var enabled int
	var lastSynced sql.NullTime

	err := scanner.Scan(&sub.ID, &sub.Token, &sub.MemberID, &sub.Name, &sub.URL,
		&enabled, &lastSynced, &sub.LastError, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Enabled = enabled != 0
	if lastSynced.Valid {
		t := lastSynced.Time.UTC()
		sub.LastSynced = &t
	}
	return &sub, nil
}

func (s *FeedStore) CreateSubscription(token string, memberID int64, name, url string) (*model.FeedSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO feed_subscriptions (token, member_id, name, url) VALUES (?, ?, ?, ?)`,
		token, memberID, name, url,
	)
	if err != nil {
		return nil, fmt.Errorf("insert feed subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSubscription(id)
}

func (s *FeedStore) GetSubscription(id int64) (*model.FeedSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM feed_subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query feed subscription: %w", err)
	}
	return sub, nil
}

func (s *FeedStore) ListSubscriptions() ([]model.FeedSubscription, error) {
	rows, err := s.db.Query(`SELECT ` + subscriptionCols + ` FROM feed_subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query feed subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.FeedSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *FeedStore) ListEnabledSubscriptions() ([]model.FeedSubscription, error) {
	rows, err := s.db.Query(`SELECT ` + subscriptionCols + ` FROM feed_subscriptions WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query enabled subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.FeedSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *FeedStore) UpdateSubscription(id int64, name, url string, enabled bool) (*model.FeedSubscription, error) {
	_, err := s.db.Exec(
		`UPDATE feed_subscriptions SET name = ?, url = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, url, boolInt(enabled), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update feed subscription: %w", err)
	}
	return s.GetSubscription(id)
}

// MarkSynced records the outcome of a sync attempt.
func (s *FeedStore) MarkSynced(id int64, at time.Time, syncErr string) error {
	_, err := s.db.Exec(
		`UPDATE feed_subscriptions SET last_synced = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), syncErr, id,
	)
	if err != nil {
		return fmt.Errorf("mark subscription synced: %w", err)
	}
	return nil
}

// DeleteSubscription removes the subscription; its external events cascade.
func (s *FeedStore) DeleteSubscription(id int64) error {
	_, err := s.db.Exec(`DELETE FROM feed_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed subscription: %w", err)
	}
	return nil
}

// ReplaceEvents swaps the subscription's imported events for the given set in
// one transaction, so a half-failed sync never leaves a mixed view.
func (s *FeedStore) ReplaceEvents(ctx context.Context, sub *model.FeedSubscription, events []model.ExternalEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM external_events WHERE subscription_id = ?`, sub.ID,
	); err != nil {
		return fmt.Errorf("clear external events: %w", err)
	}

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO external_events (subscription_id, member_id, uid, title, start_time, end_time, all_day)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, sub.MemberID, ev.UID, ev.Title, ev.StartTime.UTC(), ev.EndTime.UTC(), boolInt(ev.AllDay),
		); err != nil {
			return fmt.Errorf("insert external event: %w", err)
		}
	}

	return tx.Commit()
}

// ListEventsForMember returns the member's imported busy blocks overlapping
// the half-open window [start, end).
func (s *FeedStore) ListEventsForMember(ctx context.Context, memberID int64, start, end time.Time) ([]model.ExternalEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subscription_id, member_id, uid, title, start_time, end_time, all_day, created_at
		 FROM external_events
		 WHERE member_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time`,
		memberID, end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query external events: %w", err)
	}
	defer rows.Close()

	var events []model.ExternalEvent
	for rows.Next() {
		var ev model.ExternalEvent
		var allDay int
		if err := rows.Scan(&ev.ID, &ev.SubscriptionID, &ev.MemberID, &ev.UID, &ev.Title,
			&ev.StartTime, &ev.EndTime, &allDay, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan external event: %w", err)
		}
		ev.AllDay = allDay != 0
		ev.StartTime = ev.StartTime.UTC()
		ev.EndTime = ev.EndTime.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

package model

import "time"

// FeedSubscription is an ICS calendar feed imported for one member.
type FeedSubscription struct {
	ID         int64      `json:"id"`
	Token      string     `json:"token"`
	MemberID   int64      `json:"member_id"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Enabled    bool       `json:"enabled"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExternalEvent is one imported busy block. Always concrete: recurring feed
// entries are flattened at import time, and exceptions never apply.
type ExternalEvent struct {
	ID             int64     `json:"id"`
	SubscriptionID int64     `json:"subscription_id"`
	MemberID       int64     `json:"member_id"`
	UID            string    `json:"uid"`
	Title          string    `json:"title"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AllDay         bool      `json:"all_day"`
	CreatedAt      time.Time `json:"created_at"`
}

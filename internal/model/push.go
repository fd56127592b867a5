package model

import "time"

type PushSubscription struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"-"`
	AuthKey   string    `json:"-"`
	Device    string    `json:"device"`
	CreatedAt time.Time `json:"created_at"`
}

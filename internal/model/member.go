package model

import "time"

// Member is one person in the household. TimeZone and the day window feed the
// availability search defaults; the PIN hash never leaves the store.
type Member struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	AvatarEmoji  string    `json:"avatar_emoji"`
	TimeZone     string    `json:"time_zone"`
	DayStartHour int       `json:"day_start_hour"`
	DayEndHour   int       `json:"day_end_hour"`
	HasPIN       bool      `json:"has_pin"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

package model

import "time"

type Contact struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Relation  string     `json:"relation"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

package model

import "time"

// ChoreArea groups chores by part of the house (kitchen, yard, ...).
type ChoreArea struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chore is a recurring or one-off task. RecurrenceRule holds an RRULE string;
// empty means the chore is due once, on creation day. AreaID and AssignedTo
// are nil when unset.
type Chore struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	AreaID         *int64    `json:"area_id"`
	Points         int       `json:"points"`
	RecurrenceRule string    `json:"recurrence_rule"`
	AssignedTo     *int64    `json:"assigned_to"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChoreCompletion records who finished a chore and when. CompletedBy is nil
// when the member was since deleted.
type ChoreCompletion struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	CompletedBy *int64    `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}

package model

import "time"

// MemberRole describes how a member relates to a calendar event. Involved
// members are busy during the event's occurrences; aware members only see it.
type MemberRole string

const (
	RoleInvolved MemberRole = "involved"
	RoleAware    MemberRole = "aware"
)

// CalendarEvent is a series: one logical single or recurring event. StartTime
// and EndTime are the first occurrence's span and establish the duration of
// every generated occurrence.
type CalendarEvent struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	Color         string     `json:"color"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	AllDay        bool       `json:"all_day"`
	RRule         string     `json:"rrule,omitempty"`
	RecurrenceEnd *time.Time `json:"recurrence_end,omitempty"`
	// ParentEventID records the series this one was split off from on a
	// this-and-future edit. Audit only, never enforced.
	ParentEventID *int64    `json:"parent_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Members []EventMember `json:"members,omitempty"`
}

// Recurring reports whether the event has a recurrence rule.
func (e *CalendarEvent) Recurring() bool {
	return e.RRule != ""
}

// Duration is the span of the first occurrence, inherited by generated ones.
func (e *CalendarEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

type EventMember struct {
	EventID  int64      `json:"event_id"`
	MemberID int64      `json:"member_id"`
	Role     MemberRole `json:"role"`
}

// EventException overrides or deletes a single occurrence of a series, keyed
// by the occurrence's original (un-overridden) start instant. When IsDeleted
// is set the override fields are meaningless.
type EventException struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"event_id"`
	OriginalStart time.Time `json:"original_start"`
	IsDeleted     bool      `json:"is_deleted"`

	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	AllDay      *bool      `json:"all_day,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeSlot is a half-open interval [Start, End). Used for busy intervals and
// free-slot candidates alike. Title is carried for display only and does not
// participate in merging.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Title string    `json:"title,omitempty"`
}

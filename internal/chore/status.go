package chore

import (
	"log/slog"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusNotDue    Status = "not_due"
)

// ChoreWithStatus pairs a chore with its computed due state and the display
// fields handlers join in.
type ChoreWithStatus struct {
	model.Chore
	Status         Status     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	LastCompletion *time.Time `json:"last_completion,omitempty"`
	AreaName       string     `json:"area_name,omitempty"`
	MemberName     string     `json:"member_name,omitempty"`
}

// ComputeStatus determines the status and current due date for a chore given
// its last completion. Recurring chores are driven by the same rule evaluator
// as the calendar; a chore whose rule fails to parse degrades to one-off.
func ComputeStatus(c model.Chore, lastCompletion *time.Time, today time.Time) (Status, *time.Time) {
	today = startOfDay(today)

	if c.RecurrenceRule == "" {
		if lastCompletion != nil {
			return StatusCompleted, nil
		}
		return StatusPending, nil
	}

	// Expand from creation through end of tomorrow to find the current due
	// date. Chore dates carry no duration; an hour keeps the evaluator's
	// overlap math harmless.
	tomorrow := today.Add(48 * time.Hour)
	dueDates, err := recurrence.Evaluate(c.RecurrenceRule, c.CreatedAt, c.CreatedAt.Add(time.Hour), c.CreatedAt, tomorrow)
	if err != nil {
		slog.Error("invalid chore recurrence rule", "chore_id", c.ID, "rule", c.RecurrenceRule, "error", err)
		if lastCompletion != nil {
			return StatusCompleted, nil
		}
		return StatusPending, nil
	}
	if len(dueDates) == 0 {
		return StatusNotDue, nil
	}

	// Most recent due date that falls before the end of today.
	endOfToday := today.Add(24 * time.Hour)
	var currentDue *time.Time
	for i := len(dueDates) - 1; i >= 0; i-- {
		d := startOfDay(dueDates[i])
		if d.Before(endOfToday) {
			currentDue = &d
			break
		}
	}
	if currentDue == nil {
		return StatusNotDue, nil
	}

	if lastCompletion != nil && !startOfDay(*lastCompletion).Before(*currentDue) {
		return StatusCompleted, currentDue
	}
	if currentDue.Before(today) {
		return StatusOverdue, currentDue
	}
	return StatusPending, currentDue
}

// IsDueOnDate reports whether the chore has a due occurrence on the given day.
func IsDueOnDate(c model.Chore, date time.Time) bool {
	if c.RecurrenceRule == "" {
		// One-off chores stay due until completed.
		return true
	}

	dayStart := startOfDay(date)
	dueDates, err := recurrence.Evaluate(c.RecurrenceRule, c.CreatedAt, c.CreatedAt.Add(time.Hour), dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return false
	}
	return len(dueDates) > 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Package calendar implements occurrence expansion, scope-aware series
// mutation, busy-interval aggregation, and free-slot search for household
// calendar events.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSeriesNotFound is returned when the targeted event id does not exist.
	ErrSeriesNotFound = errors.New("calendar: series not found")

	// ErrOriginalStartRequired is returned when a per-occurrence scope is
	// used without identifying the occurrence. Rejected before any write.
	ErrOriginalStartRequired = errors.New("calendar: scope requires original_start")
)

// Scope selects which occurrences of a series an edit or delete affects.
// Non-recurring events always behave as ScopeEntireSeries.
type Scope string

const (
	ScopeThisOccurrence Scope = "this_occurrence"
	ScopeThisAndFuture  Scope = "this_and_future"
	ScopeEntireSeries   Scope = "entire_series"
)

// ParseScope maps a request parameter to a Scope. Empty input means the whole
// series.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeThisOccurrence, ScopeThisAndFuture, ScopeEntireSeries:
		return Scope(s), nil
	case "":
		return ScopeEntireSeries, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Occurrence is one concrete instance of a series after exceptions are
// applied. OriginalStart is the un-overridden start instant that keys the
// occurrence within its series; it is nil for non-recurring events.
type Occurrence struct {
	EventID       int64      `json:"event_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	Color         string     `json:"color"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	AllDay        bool       `json:"all_day"`
	OriginalStart *time.Time `json:"original_start,omitempty"`
}

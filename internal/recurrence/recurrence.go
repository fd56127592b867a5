// Package recurrence evaluates RRULE expressions into concrete occurrence
// start instants. Parsing and generation are delegated to rrule-go; this
// package only fixes the window semantics the calendar engine relies on.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Safety cap so a runaway rule (e.g. FREQ=SECONDLY over a year) cannot pin
// the process. Windows queried by the UI are a few weeks wide at most.
const maxOccurrences = 5000

// ParseError reports a malformed rule expression. Fatal for the series that
// carries the rule, recoverable for everything around it.
type ParseError struct {
	Rule string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse recurrence rule %q: %v", e.Rule, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Validate checks that rule is a parseable RRULE expression.
func Validate(rule string) error {
	if _, err := rrule.StrToRRule(rule); err != nil {
		return &ParseError{Rule: rule, Err: err}
	}
	return nil
}

// Evaluate returns the ordered occurrence start instants of rule within the
// half-open window [windowStart, windowEnd). seriesStart anchors the rule
// (DTSTART) and seriesEnd establishes the occurrence duration, so an
// occurrence that starts before the window but overlaps into it is still
// returned. The result is finite and ascending.
func Evaluate(rule string, seriesStart, seriesEnd, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if !windowStart.Before(windowEnd) {
		return nil, nil
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, &ParseError{Rule: rule, Err: err}
	}
	r.DTStart(seriesStart.UTC())

	duration := seriesEnd.Sub(seriesStart)
	if duration < 0 {
		duration = 0
	}

	// Widen the query by one duration so straddling occurrences are seen,
	// then filter back down to half-open overlap.
	raw := r.Between(windowStart.UTC().Add(-duration), windowEnd.UTC(), true)

	var starts []time.Time
	for _, s := range raw {
		if !s.Before(windowEnd) {
			break
		}
		if s.Add(duration).After(windowStart) {
			starts = append(starts, s)
		}
		if len(starts) >= maxOccurrences {
			break
		}
	}
	return starts, nil
}

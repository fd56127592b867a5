package calendar

import (
	"sort"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
)

// exceptionState is the per-occurrence resolution of an exception record.
// Modeling it as an explicit three-way state avoids treating "all override
// fields nil" as meaningful on its own.
type exceptionState int

const (
	noException exceptionState = iota
	occurrenceDeleted
	occurrenceOverridden
)

func resolveException(x *model.EventException) exceptionState {
	switch {
	case x == nil:
		return noException
	case x.IsDeleted:
		return occurrenceDeleted
	default:
		return occurrenceOverridden
	}
}

// Expand produces the visible occurrences of a series within the half-open
// window [windowStart, windowEnd), ordered by start instant.
//
// Non-recurring series emit their single occurrence iff it overlaps the
// window. Recurring series are expanded through the rule evaluator, then each
// raw start is checked against the series' recurrence end (the evaluator is
// not trusted to respect it) and against the exception set: deleted
// occurrences are suppressed, overridden ones emit override fields with
// series defaults as fallback. An exception overriding only the start keeps
// the series' first-occurrence duration.
//
// A malformed rule surfaces as a *recurrence.ParseError; nothing is emitted
// for that series.
func Expand(series model.CalendarEvent, exceptions []model.EventException, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	if !windowStart.Before(windowEnd) {
		return nil, nil
	}

	if !series.Recurring() {
		if series.StartTime.Before(windowEnd) && series.EndTime.After(windowStart) {
			return []Occurrence{{
				EventID:     series.ID,
				Title:       series.Title,
				Description: series.Description,
				Location:    series.Location,
				Color:       series.Color,
				Start:       series.StartTime,
				End:         series.EndTime,
				AllDay:      series.AllDay,
			}}, nil
		}
		return nil, nil
	}

	byOriginalStart := make(map[int64]*model.EventException, len(exceptions))
	for i := range exceptions {
		byOriginalStart[exceptions[i].OriginalStart.UTC().UnixNano()] = &exceptions[i]
	}

	starts, err := recurrence.Evaluate(series.RRule, series.StartTime, series.EndTime, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	duration := series.Duration()
	var out []Occurrence
	for _, s := range starts {
		if series.RecurrenceEnd != nil && s.After(*series.RecurrenceEnd) {
			// Starts are ascending, so every later one is excluded too.
			break
		}

		x := byOriginalStart[s.UTC().UnixNano()]
		switch resolveException(x) {
		case occurrenceDeleted:
			continue
		case occurrenceOverridden:
			out = append(out, overriddenOccurrence(series, x, s, duration))
		default:
			original := s
			out = append(out, Occurrence{
				EventID:       series.ID,
				Title:         series.Title,
				Description:   series.Description,
				Location:      series.Location,
				Color:         series.Color,
				Start:         s,
				End:           s.Add(duration),
				AllDay:        series.AllDay,
				OriginalStart: &original,
			})
		}
	}

	// Start overrides can reorder occurrences relative to the raw sequence.
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func overriddenOccurrence(series model.CalendarEvent, x *model.EventException, originalStart time.Time, duration time.Duration) Occurrence {
	occ := Occurrence{
		EventID:     series.ID,
		Title:       series.Title,
		Description: series.Description,
		Location:    series.Location,
		Color:       series.Color,
		Start:       originalStart,
		End:         originalStart.Add(duration),
		AllDay:      series.AllDay,
	}
	original := originalStart
	occ.OriginalStart = &original

	if x.Title != nil {
		occ.Title = *x.Title
	}
	if x.Description != nil {
		occ.Description = *x.Description
	}
	if x.Location != nil {
		occ.Location = *x.Location
	}
	if x.AllDay != nil {
		occ.AllDay = *x.AllDay
	}
	if x.StartTime != nil {
		occ.Start = *x.StartTime
		// Start-only overrides inherit the series duration.
		occ.End = occ.Start.Add(duration)
	}
	if x.EndTime != nil {
		occ.End = *x.EndTime
	}
	return occ
}

package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// Mutator applies scoped edits and deletes to calendar series. Multi-record
// writes (truncation + sibling creation, exception discards) go through the
// store's transactional operations, so a failure partway through commits
// nothing.
type Mutator struct {
	events *store.CalendarEventStore
	logger *slog.Logger
}

func NewMutator(es *store.CalendarEventStore, logger *slog.Logger) *Mutator {
	return &Mutator{events: es, logger: logger}
}

// EditParams carries a partial edit. Nil fields keep their current value.
// Under ScopeThisOccurrence the set fields become the occurrence's override;
// under the series scopes they are applied to the (new) series. Members is
// only honored for ScopeEntireSeries: nil leaves membership alone, non-nil is
// the full desired set.
type EditParams struct {
	Title         *string
	Description   *string
	Location      *string
	Color         *string
	StartTime     *time.Time
	EndTime       *time.Time
	AllDay        *bool
	RRule         *string
	RecurrenceEnd *time.Time
	Members       []model.EventMember
}

// Edit applies the edit under the given scope. originalStart identifies the
// occurrence for the per-occurrence scopes and must be the un-overridden
// start instant. Returns the surviving series: the edited one, or the new
// sibling for a this-and-future split.
func (m *Mutator) Edit(ctx context.Context, id int64, scope Scope, originalStart *time.Time, p EditParams) (*model.CalendarEvent, error) {
	ev, err := m.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrSeriesNotFound
	}
	if !ev.Recurring() {
		scope = ScopeEntireSeries
	}

	switch scope {
	case ScopeThisOccurrence:
		if originalStart == nil {
			return nil, ErrOriginalStartRequired
		}
		err := m.events.UpsertException(ctx, id, *originalStart, store.ExceptionParams{
			Title:       p.Title,
			Description: p.Description,
			Location:    p.Location,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
			AllDay:      p.AllDay,
		})
		if err != nil {
			return nil, err
		}
		return m.events.GetByID(ctx, id)

	case ScopeThisAndFuture:
		if originalStart == nil {
			return nil, ErrOriginalStartRequired
		}
		sp := mergeSeriesParams(ev, p)
		sp.StartTime = *originalStart
		if p.StartTime != nil {
			sp.StartTime = *p.StartTime
		}
		sp.EndTime = sp.StartTime.Add(ev.Duration())
		if p.EndTime != nil {
			sp.EndTime = *p.EndTime
		}
		m.logger.Info("splitting series", "event_id", id, "split_at", originalStart)
		return m.events.Split(ctx, id, *originalStart, sp)

	default:
		sp := mergeSeriesParams(ev, p)
		if p.Members != nil {
			sp.Members = p.Members
		}
		return m.events.Update(ctx, id, sp)
	}
}

// Delete removes occurrences under the given scope: a tombstone exception,
// a truncation of the series, or the series itself with everything attached.
func (m *Mutator) Delete(ctx context.Context, id int64, scope Scope, originalStart *time.Time) error {
	ev, err := m.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ev == nil {
		return ErrSeriesNotFound
	}
	if !ev.Recurring() {
		scope = ScopeEntireSeries
	}

	switch scope {
	case ScopeThisOccurrence:
		if originalStart == nil {
			return ErrOriginalStartRequired
		}
		return m.events.UpsertException(ctx, id, *originalStart, store.ExceptionParams{IsDeleted: true})

	case ScopeThisAndFuture:
		if originalStart == nil {
			return ErrOriginalStartRequired
		}
		m.logger.Info("truncating series", "event_id", id, "split_at", originalStart)
		return m.events.Truncate(ctx, id, *originalStart)

	default:
		return m.events.Delete(ctx, id)
	}
}

// mergeSeriesParams lays the partial edit over the current series state. The
// current membership carries over; entire-series edits replace it when the
// request names members.
func mergeSeriesParams(ev *model.CalendarEvent, p EditParams) store.SeriesParams {
	sp := store.SeriesParams{
		Title:         ev.Title,
		Description:   ev.Description,
		Location:      ev.Location,
		Color:         ev.Color,
		StartTime:     ev.StartTime,
		EndTime:       ev.EndTime,
		AllDay:        ev.AllDay,
		RRule:         ev.RRule,
		RecurrenceEnd: ev.RecurrenceEnd,
		Members:       ev.Members,
	}
	if p.Title != nil {
		sp.Title = *p.Title
	}
	if p.Description != nil {
		sp.Description = *p.Description
	}
	if p.Location != nil {
		sp.Location = *p.Location
	}
	if p.Color != nil {
		sp.Color = *p.Color
	}
	if p.StartTime != nil {
		sp.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		sp.EndTime = *p.EndTime
	}
	if p.AllDay != nil {
		sp.AllDay = *p.AllDay
	}
	if p.RRule != nil {
		sp.RRule = *p.RRule
	}
	if p.RecurrenceEnd != nil {
		sp.RecurrenceEnd = p.RecurrenceEnd
	}
	return sp
}

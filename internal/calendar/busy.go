package calendar

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
)

// Availability aggregates busy intervals and searches free slots across
// household members. All computation happens over data read through the
// stores; the type itself holds no mutable state and is safe for concurrent
// use.
type Availability struct {
	events  *store.CalendarEventStore
	feeds   *store.FeedStore
	members *store.MemberStore
	logger  *slog.Logger
}

func NewAvailability(es *store.CalendarEventStore, fs *store.FeedStore, ms *store.MemberStore, logger *slog.Logger) *Availability {
	return &Availability{events: es, feeds: fs, members: ms, logger: logger}
}

// MemberBusy is one member's merged busy intervals with the display name
// resolved for labeling.
type MemberBusy struct {
	MemberID int64            `json:"member_id"`
	Name     string           `json:"name"`
	Busy     []model.TimeSlot `json:"busy"`
}

// BusyIntervals returns the merged, ordered busy intervals for one member
// within [windowStart, windowEnd). Sources: occurrences of every series the
// member is involved in (aware membership never counts), plus imported
// external events. A series with a malformed rule is skipped with a warning;
// the rest of the window still resolves.
func (a *Availability) BusyIntervals(ctx context.Context, memberID int64, windowStart, windowEnd time.Time) ([]model.TimeSlot, error) {
	series, err := a.events.ListInvolving(ctx, memberID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	var slots []model.TimeSlot
	for _, ev := range series {
		exceptions, err := a.events.ListExceptions(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		occurrences, err := Expand(ev, exceptions, windowStart, windowEnd)
		if err != nil {
			var parseErr *recurrence.ParseError
			if errors.As(err, &parseErr) {
				a.logger.Warn("skipping series with bad recurrence rule",
					"event_id", ev.ID, "rule", ev.RRule, "error", err)
				continue
			}
			return nil, err
		}
		for _, occ := range occurrences {
			slots = append(slots, model.TimeSlot{Start: occ.Start, End: occ.End, Title: occ.Title})
		}
	}

	external, err := a.feeds.ListEventsForMember(ctx, memberID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	for _, ev := range external {
		slots = append(slots, model.TimeSlot{Start: ev.StartTime, End: ev.EndTime, Title: ev.Title})
	}

	return MergeSlots(slots), nil
}

// FreeBusy computes busy intervals for each requested member independently.
// Members are gathered in parallel; the result keeps the requested order
// regardless of completion order.
func (a *Availability) FreeBusy(ctx context.Context, memberIDs []int64, windowStart, windowEnd time.Time) ([]MemberBusy, error) {
	results := make([]MemberBusy, len(memberIDs))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range memberIDs {
		g.Go(func() error {
			busy, err := a.BusyIntervals(ctx, id, windowStart, windowEnd)
			if err != nil {
				return err
			}
			name, err := a.members.DisplayName(id)
			if err != nil {
				return err
			}
			results[i] = MemberBusy{MemberID: id, Name: name, Busy: busy}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// groupBusy returns the merged union of all requested members' busy
// intervals: any one member being busy makes the group busy. Sorted before
// the merge so the outcome never depends on gathering order.
func (a *Availability) groupBusy(ctx context.Context, memberIDs []int64, windowStart, windowEnd time.Time) ([]model.TimeSlot, error) {
	perMember := make([][]model.TimeSlot, len(memberIDs))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range memberIDs {
		g.Go(func() error {
			busy, err := a.BusyIntervals(ctx, id, windowStart, windowEnd)
			if err != nil {
				return err
			}
			perMember[i] = busy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.TimeSlot
	for _, busy := range perMember {
		all = append(all, busy...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return MergeSlots(all), nil
}

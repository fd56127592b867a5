package calendar

import (
	"context"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/tz"
)

// SlotOptions controls the free-slot search. PreferredStartHour and
// PreferredEndHour bound candidate starts to [start, end) in local hours of
// TimeZone; either may be nil. An unknown TimeZone falls back to UTC.
type SlotOptions struct {
	Duration           time.Duration
	MaxResults         int
	PreferredStartHour *int
	PreferredEndHour   *int
	TimeZone           string
}

// FindSlots enumerates up to MaxResults candidate meeting slots of the given
// duration inside [windowStart, windowEnd) that overlap no member's busy
// time. Pure with respect to its inputs: the same request yields the same
// slots.
func (a *Availability) FindSlots(ctx context.Context, memberIDs []int64, windowStart, windowEnd time.Time, opts SlotOptions) ([]model.TimeSlot, error) {
	busy, err := a.groupBusy(ctx, memberIDs, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	loc, ok := tz.Resolve(opts.TimeZone)
	if !ok && opts.TimeZone != "" {
		a.logger.Warn("unknown timezone for slot search, using UTC", "time_zone", opts.TimeZone)
	}

	return findSlots(busy, windowStart, windowEnd, opts, loc), nil
}

// findSlots runs the gap walk over already-merged busy intervals.
func findSlots(busy []model.TimeSlot, windowStart, windowEnd time.Time, opts SlotOptions, loc *time.Location) []model.TimeSlot {
	if opts.Duration <= 0 || opts.MaxResults <= 0 || !windowStart.Before(windowEnd) {
		return nil
	}

	constrained := opts.PreferredStartHour != nil || opts.PreferredEndHour != nil
	startHour, endHour := 0, 24
	if opts.PreferredStartHour != nil {
		startHour = *opts.PreferredStartHour
	}
	if opts.PreferredEndHour != nil {
		endHour = *opts.PreferredEndHour
	}

	// Zero-length sentinel so the gap after the last busy interval is
	// searched too.
	busy = append(busy[:len(busy):len(busy)], model.TimeSlot{Start: windowEnd, End: windowEnd})

	var out []model.TimeSlot
	cursor := windowStart
	for _, b := range busy {
		gapEnd := b.Start
		if gapEnd.After(windowEnd) {
			gapEnd = windowEnd
		}

		candidate := cursor
		for len(out) < opts.MaxResults {
			if constrained {
				next, ok := alignPreferred(candidate, opts.Duration, startHour, endHour, loc)
				if !ok {
					break
				}
				candidate = next
			}
			if candidate.Add(opts.Duration).After(gapEnd) {
				break
			}
			out = append(out, model.TimeSlot{Start: candidate, End: candidate.Add(opts.Duration)})
			// Packed, non-overlapping candidates within a gap.
			candidate = candidate.Add(opts.Duration)
		}

		if b.End.After(cursor) {
			cursor = b.End
		}
		if len(out) >= opts.MaxResults || !cursor.Before(windowEnd) {
			break
		}
	}
	return out
}

// alignPreferred moves a candidate start forward until the slot [t, t+d)
// fits the preferred-hour window in loc's local time. Jumps are always to a
// preferred start, never backward, and a slot that would spill past the end
// boundary moves to the next day's preferred start rather than being
// truncated. ok=false means no candidate of this duration can ever satisfy
// the bounds.
func alignPreferred(t time.Time, d time.Duration, startHour, endHour int, loc *time.Location) (_ time.Time, ok bool) {
	// Two jumps suffice when a fit exists: one to reach a preferred start,
	// one more if the slot spills. A third violation means the duration
	// cannot fit any preferred window.
	for i := 0; i < 3; i++ {
		local := t.In(loc)
		hour := local.Hour()

		if hour < startHour {
			t = time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, loc)
			continue
		}
		if hour >= endHour {
			t = time.Date(local.Year(), local.Month(), local.Day()+1, startHour, 0, 0, 0, loc)
			continue
		}

		boundary := time.Date(local.Year(), local.Month(), local.Day(), endHour, 0, 0, 0, loc)
		if t.Add(d).After(boundary) {
			t = time.Date(local.Year(), local.Month(), local.Day()+1, startHour, 0, 0, 0, loc)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

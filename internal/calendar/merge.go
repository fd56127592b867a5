package calendar

import (
	"sort"

	"github.com/dukerupert/bywater/internal/model"
)

// MergeSlots normalizes a set of busy intervals: sorted by start, zero and
// negative length slots discarded, overlapping and back-to-back slots
// coalesced into one. The comparison is closed (next.Start <= current.End) so
// touching events form a single busy block. Idempotent, and insensitive to
// input order.
func MergeSlots(slots []model.TimeSlot) []model.TimeSlot {
	sorted := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Start.Before(s.End) {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var merged []model.TimeSlot
	for _, s := range sorted {
		if len(merged) == 0 {
			merged = append(merged, s)
			continue
		}
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/calendar"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

const (
	defaultSlotResults = 10
	maxSlotResults     = 100
)

type AvailabilityHandler struct {
	availability *calendar.Availability
	members      *store.MemberStore
}

func NewAvailabilityHandler(a *calendar.Availability, ms *store.MemberStore) *AvailabilityHandler {
	return &AvailabilityHandler{availability: a, members: ms}
}

// FreeBusy returns each requested member's merged busy intervals within
// [start, end). Query: members=1,2,3&start=...&end=...
func (h *AvailabilityHandler) FreeBusy(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}
	memberIDs, ok := parseMemberIDs(w, r)
	if !ok {
		return
	}

	results, err := h.availability.FreeBusy(r.Context(), memberIDs, start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute free-busy"})
		return
	}
	for i := range results {
		if results[i].Busy == nil {
			results[i].Busy = []model.TimeSlot{}
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// Slots finds candidate meeting slots where every requested member is free.
// Query: members, start, end, duration_minutes, and optionally max_results,
// preferred_start_hour, preferred_end_hour, timezone. Omitted preferences
// default from the first requested member's profile: their time zone, and
// their day window when neither preferred hour is given.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}
	memberIDs, ok := parseMemberIDs(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	minutes, err := strconv.Atoi(q.Get("duration_minutes"))
	if err != nil || minutes <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duration_minutes must be a positive integer"})
		return
	}

	opts := calendar.SlotOptions{
		Duration:   time.Duration(minutes) * time.Minute,
		MaxResults: defaultSlotResults,
		TimeZone:   q.Get("timezone"),
	}

	if s := q.Get("max_results"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_results must be a positive integer"})
			return
		}
		if n > maxSlotResults {
			n = maxSlotResults
		}
		opts.MaxResults = n
	}

	if s := q.Get("preferred_start_hour"); s != "" {
		hour, ok := parseHour(w, s, "preferred_start_hour")
		if !ok {
			return
		}
		opts.PreferredStartHour = &hour
	}
	if s := q.Get("preferred_end_hour"); s != "" {
		hour, ok := parseHour(w, s, "preferred_end_hour")
		if !ok {
			return
		}
		opts.PreferredEndHour = &hour
	}
	if opts.PreferredStartHour != nil && opts.PreferredEndHour != nil &&
		*opts.PreferredStartHour >= *opts.PreferredEndHour {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preferred_start_hour must be before preferred_end_hour"})
		return
	}

	if opts.TimeZone == "" || (opts.PreferredStartHour == nil && opts.PreferredEndHour == nil) {
		m, err := h.members.GetByID(memberIDs[0])
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load member defaults"})
			return
		}
		if m != nil {
			if opts.TimeZone == "" {
				opts.TimeZone = m.TimeZone
			}
			if opts.PreferredStartHour == nil && opts.PreferredEndHour == nil {
				startHour, endHour := m.DayStartHour, m.DayEndHour
				opts.PreferredStartHour = &startHour
				opts.PreferredEndHour = &endHour
			}
		}
	}

	slots, err := h.availability.FindSlots(r.Context(), memberIDs, start, end, opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to find slots"})
		return
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}

	writeJSON(w, http.StatusOK, slots)
}

func parseMemberIDs(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	raw := r.URL.Query().Get("members")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "members query parameter is required"})
		return nil, false
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "members must be a comma-separated list of ids"})
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func parseHour(w http.ResponseWriter, s, name string) (int, bool) {
	hour, err := strconv.Atoi(s)
	if err != nil || hour < 0 || hour > 24 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": name + " must be an hour between 0 and 24"})
		return 0, false
	}
	return hour, true
}

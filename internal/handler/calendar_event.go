package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/calendar"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type CalendarEventHandler struct {
	events  *store.CalendarEventStore
	members *store.MemberStore
	mutator *calendar.Mutator
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewCalendarEventHandler(es *store.CalendarEventStore, ms *store.MemberStore, mut *calendar.Mutator, hub *websocket.Hub, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{events: es, members: ms, mutator: mut, hub: hub, logger: logger}
}

type eventRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Location      string        `json:"location"`
	Color         string        `json:"color"`
	StartTime     string        `json:"start_time"`
	EndTime       string        `json:"end_time"`
	AllDay        bool          `json:"all_day"`
	RRule         string        `json:"rrule"`
	RecurrenceEnd string        `json:"recurrence_end"`
	Members       []eventMember `json:"members"`
}

type eventMember struct {
	MemberID int64  `json:"member_id"`
	Role     string `json:"role"`
}

// List expands every series overlapping [start, end) into concrete
// occurrences. A series whose rule no longer parses is skipped with a
// warning so the rest of the window still renders.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	series, err := h.events.ListOverlapping(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	occurrences := []calendar.Occurrence{}
	for _, ev := range series {
		exceptions, err := h.events.ListExceptions(r.Context(), ev.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
			return
		}
		occs, err := calendar.Expand(ev, exceptions, start, end)
		if err != nil {
			var parseErr *recurrence.ParseError
			if errors.As(err, &parseErr) {
				h.logger.Warn("skipping series with bad recurrence rule",
					"event_id", ev.ID, "rule", ev.RRule, "error", err)
				continue
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to expand events"})
			return
		}
		occurrences = append(occurrences, occs...)
	}

	writeJSON(w, http.StatusOK, occurrences)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	p, ok := h.validate(w, r, &req)
	if !ok {
		return
	}

	event, err := h.events.Create(r.Context(), *p)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

// Update applies a scoped edit. The scope query parameter selects this
// occurrence, this and future, or the entire series (the default);
// original_start identifies the occurrence for the per-occurrence scopes.
func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	scope, originalStart, ok := parseScopeParams(w, r)
	if !ok {
		return
	}

	var req struct {
		Title         *string       `json:"title"`
		Description   *string       `json:"description"`
		Location      *string       `json:"location"`
		Color         *string       `json:"color"`
		StartTime     *string       `json:"start_time"`
		EndTime       *string       `json:"end_time"`
		AllDay        *bool         `json:"all_day"`
		RRule         *string       `json:"rrule"`
		RecurrenceEnd *string       `json:"recurrence_end"`
		Members       []eventMember `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	p := calendar.EditParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Color:       req.Color,
		AllDay:      req.AllDay,
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_time must be RFC3339 format"})
			return
		}
		p.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_time must be RFC3339 format"})
			return
		}
		p.EndTime = &t
	}
	if req.RRule != nil {
		if *req.RRule != "" {
			if err := recurrence.Validate(*req.RRule); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recurrence rule"})
				return
			}
		}
		p.RRule = req.RRule
	}
	if req.RecurrenceEnd != nil && *req.RecurrenceEnd != "" {
		t, err := time.Parse(time.RFC3339, *req.RecurrenceEnd)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence_end must be RFC3339 format"})
			return
		}
		p.RecurrenceEnd = &t
	}
	if req.Members != nil {
		members, ok := h.resolveMembers(w, r, req.Members)
		if !ok {
			return
		}
		p.Members = members
	}

	event, err := h.mutator.Edit(r.Context(), id, scope, originalStart, p)
	if err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "updated", id, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	scope, originalStart, ok := parseScopeParams(w, r)
	if !ok {
		return
	}

	if err := h.mutator.Delete(r.Context(), id, scope, originalStart); err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CalendarEventHandler) validate(w http.ResponseWriter, r *http.Request, req *eventRequest) (*store.SeriesParams, bool) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return nil, false
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_time must be RFC3339 format"})
		return nil, false
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_time must be RFC3339 format"})
		return nil, false
	}
	if !startTime.Before(endTime) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_time must be before end_time"})
		return nil, false
	}

	if req.RRule != "" {
		if err := recurrence.Validate(req.RRule); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recurrence rule"})
			return nil, false
		}
	}

	p := store.SeriesParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Color:       req.Color,
		StartTime:   startTime,
		EndTime:     endTime,
		AllDay:      req.AllDay,
		RRule:       req.RRule,
	}
	if req.RecurrenceEnd != "" {
		t, err := time.Parse(time.RFC3339, req.RecurrenceEnd)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence_end must be RFC3339 format"})
			return nil, false
		}
		p.RecurrenceEnd = &t
	}

	members, ok := h.resolveMembers(w, r, req.Members)
	if !ok {
		return nil, false
	}
	p.Members = members

	return &p, true
}

func (h *CalendarEventHandler) resolveMembers(w http.ResponseWriter, r *http.Request, reqMembers []eventMember) ([]model.EventMember, bool) {
	members := make([]model.EventMember, 0, len(reqMembers))
	for _, em := range reqMembers {
		role := model.MemberRole(em.Role)
		if role == "" {
			role = model.RoleInvolved
		}
		if role != model.RoleInvolved && role != model.RoleAware {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "member role must be involved or aware"})
			return nil, false
		}
		member, err := h.members.GetByID(em.MemberID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return nil, false
		}
		if member == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "member not found"})
			return nil, false
		}
		members = append(members, model.EventMember{MemberID: em.MemberID, Role: role})
	}
	return members, true
}

func (h *CalendarEventHandler) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrSeriesNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
	case errors.Is(err, calendar.ErrOriginalStartRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "original_start is required for this scope"})
	default:
		h.logger.Error("event mutation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to apply change"})
	}
}

// parseWindow reads the required start and end query parameters as a
// half-open window.
func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end query parameters are required"})
		return time.Time{}, time.Time{}, false
	}

	start, err := parseFlexibleTime(startStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339 or YYYY-MM-DD format"})
		return time.Time{}, time.Time{}, false
	}
	end, err := parseFlexibleTime(endStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339 or YYYY-MM-DD format"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseScopeParams(w http.ResponseWriter, r *http.Request) (calendar.Scope, *time.Time, bool) {
	scope, err := calendar.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scope must be this_occurrence, this_and_future, or entire_series"})
		return "", nil, false
	}

	var originalStart *time.Time
	if s := r.URL.Query().Get("original_start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "original_start must be RFC3339 format"})
			return "", nil, false
		}
		originalStart = &t
	}
	return scope, originalStart, true
}

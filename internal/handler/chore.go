package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/chore"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type ChoreHandler struct {
	chores  *store.ChoreStore
	members *store.MemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, ms *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, members: ms, hub: hub, logger: logger}
}

type choreRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	AreaID         *int64 `json:"area_id"`
	Points         int    `json:"points"`
	RecurrenceRule string `json:"recurrence_rule"`
	AssignedTo     *int64 `json:"assigned_to"`
}

func (h *ChoreHandler) parseChore(w http.ResponseWriter, r *http.Request) (*choreRequest, bool) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return nil, false
	}
	if req.Points < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must not be negative"})
		return nil, false
	}
	if req.RecurrenceRule != "" {
		if err := recurrence.Validate(req.RecurrenceRule); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recurrence rule"})
			return nil, false
		}
	}

	if req.AreaID != nil {
		area, err := h.chores.GetAreaByID(*req.AreaID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check area"})
			return nil, false
		}
		if area == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "area not found"})
			return nil, false
		}
	}
	if req.AssignedTo != nil {
		member, err := h.members.GetByID(*req.AssignedTo)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return nil, false
		}
		if member == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "member not found"})
			return nil, false
		}
	}

	return &req, true
}

// List returns every chore with its computed due status.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.chores.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}

	now := time.Now()
	out := make([]chore.ChoreWithStatus, 0, len(chores))
	for _, c := range chores {
		last, err := h.chores.LastCompletion(c.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
			return
		}

		status, dueDate := chore.ComputeStatus(c, last, now)
		cws := chore.ChoreWithStatus{
			Chore:          c,
			Status:         status,
			DueDate:        dueDate,
			LastCompletion: last,
		}
		if c.AreaID != nil {
			if area, err := h.chores.GetAreaByID(*c.AreaID); err == nil && area != nil {
				cws.AreaName = area.Name
			}
		}
		if c.AssignedTo != nil {
			if name, err := h.members.DisplayName(*c.AssignedTo); err == nil {
				cws.MemberName = name
			}
		}
		out = append(out, cws)
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseChore(w, r)
	if !ok {
		return
	}

	c, err := h.chores.Create(req.Title, req.Description, req.AreaID, req.Points, req.RecurrenceRule, req.AssignedTo)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create chore"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore", "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	req, ok := h.parseChore(w, r)
	if !ok {
		return
	}

	c, err := h.chores.Update(id, req.Title, req.Description, req.AreaID, req.Points, req.RecurrenceRule, req.AssignedTo)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update chore"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore", "updated", id, nil))
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.chores.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete chore"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	var req struct {
		CompletedBy *int64 `json:"completed_by"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	completion, err := h.chores.Complete(id, req.CompletedBy, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete chore"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore", "completed", id, nil))
	writeJSON(w, http.StatusCreated, completion)
}

// DeleteCompletion undoes a completion by its own id.
func (h *ChoreHandler) DeleteCompletion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.chores.DeleteCompletion(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete completion"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore", "uncompleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.chores.ListAreas()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list areas"})
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *ChoreHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	area, err := h.chores.CreateArea(req.Name, req.SortOrder)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create area"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore_area", "created", area.ID, nil))
	writeJSON(w, http.StatusCreated, area)
}

func (h *ChoreHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.chores.GetAreaByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get area"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "area not found"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	area, err := h.chores.UpdateArea(id, req.Name, req.SortOrder)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update area"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore_area", "updated", id, nil))
	writeJSON(w, http.StatusOK, area)
}

func (h *ChoreHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.chores.DeleteArea(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete area"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("chore_area", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

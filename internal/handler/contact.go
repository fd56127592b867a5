package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type ContactHandler struct {
	store  *store.ContactStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewContactHandler(s *store.ContactStore, hub *websocket.Hub, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{store: s, hub: hub, logger: logger}
}

type contactRequest struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Birthday string `json:"birthday"`
	Notes    string `json:"notes"`
}

func (h *ContactHandler) parseContact(w http.ResponseWriter, r *http.Request) (*store.ContactParams, bool) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return nil, false
	}

	p := store.ContactParams{
		Name:     req.Name,
		Relation: req.Relation,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		Notes:    req.Notes,
	}
	if req.Birthday != "" {
		t, err := time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "birthday must be YYYY-MM-DD format"})
			return nil, false
		}
		p.Birthday = &t
	}
	return &p, true
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list contacts"})
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	contact, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get contact"})
		return
	}
	if contact == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseContact(w, r)
	if !ok {
		return
	}

	contact, err := h.store.Create(*p)
	if err != nil {
		h.logger.Error("create contact", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create contact"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("contact", "created", contact.ID, nil))
	writeJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get contact"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
		return
	}

	p, ok := h.parseContact(w, r)
	if !ok {
		return
	}

	contact, err := h.store.Update(id, *p)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update contact"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("contact", "updated", id, nil))
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete contact"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("contact", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

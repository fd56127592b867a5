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

type EquipmentHandler struct {
	store  *store.EquipmentStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewEquipmentHandler(s *store.EquipmentStore, hub *websocket.Hub, logger *slog.Logger) *EquipmentHandler {
	return &EquipmentHandler{store: s, hub: hub, logger: logger}
}

type equipmentRequest struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	PurchaseDate    string `json:"purchase_date"`
	WarrantyUntil   string `json:"warranty_until"`
	ManualNote      string `json:"manual_note"`
	MaintenanceNote string `json:"maintenance_note"`
}

func (h *EquipmentHandler) parseEquipment(w http.ResponseWriter, r *http.Request) (*store.EquipmentParams, bool) {
	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return nil, false
	}

	p := store.EquipmentParams{
		Name:            req.Name,
		Category:        req.Category,
		ManualNote:      req.ManualNote,
		MaintenanceNote: req.MaintenanceNote,
	}
	if req.PurchaseDate != "" {
		t, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "purchase_date must be YYYY-MM-DD format"})
			return nil, false
		}
		p.PurchaseDate = &t
	}
	if req.WarrantyUntil != "" {
		t, err := time.Parse("2006-01-02", req.WarrantyUntil)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "warranty_until must be YYYY-MM-DD format"})
			return nil, false
		}
		p.WarrantyUntil = &t
	}
	return &p, true
}

func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list equipment"})
		return
	}
	if items == nil {
		items = []model.Equipment{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseEquipment(w, r)
	if !ok {
		return
	}

	item, err := h.store.Create(*p)
	if err != nil {
		h.logger.Error("create equipment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create equipment"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("equipment", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get equipment"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "equipment not found"})
		return
	}

	p, ok := h.parseEquipment(w, r)
	if !ok {
		return
	}

	item, err := h.store.Update(id, *p)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update equipment"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("equipment", "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete equipment"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("equipment", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

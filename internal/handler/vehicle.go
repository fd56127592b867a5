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

type VehicleHandler struct {
	store  *store.VehicleStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewVehicleHandler(s *store.VehicleStore, hub *websocket.Hub, logger *slog.Logger) *VehicleHandler {
	return &VehicleHandler{store: s, hub: hub, logger: logger}
}

type vehicleRequest struct {
	Name               string `json:"name"`
	Plate              string `json:"plate"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Year               int    `json:"year"`
	ServiceDueDate     string `json:"service_due_date"`
	ServiceDueOdometer *int64 `json:"service_due_odometer"`
}

func (h *VehicleHandler) parseVehicle(w http.ResponseWriter, r *http.Request) (*store.VehicleParams, bool) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return nil, false
	}

	p := store.VehicleParams{
		Name:               req.Name,
		Plate:              req.Plate,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		ServiceDueOdometer: req.ServiceDueOdometer,
	}
	if req.ServiceDueDate != "" {
		t, err := time.Parse("2006-01-02", req.ServiceDueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service_due_date must be YYYY-MM-DD format"})
			return nil, false
		}
		p.ServiceDueDate = &t
	}
	return &p, true
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list vehicles"})
		return
	}
	if vehicles == nil {
		vehicles = []model.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseVehicle(w, r)
	if !ok {
		return
	}

	vehicle, err := h.store.Create(*p)
	if err != nil {
		h.logger.Error("create vehicle", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create vehicle"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("vehicle", "created", vehicle.ID, nil))
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get vehicle"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
		return
	}

	p, ok := h.parseVehicle(w, r)
	if !ok {
		return
	}

	vehicle, err := h.store.Update(id, *p)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update vehicle"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("vehicle", "updated", id, nil))
	writeJSON(w, http.StatusOK, vehicle)
}

// RecordOdometer updates the odometer, never letting it go backward.
func (h *VehicleHandler) RecordOdometer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get vehicle"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
		return
	}

	var req struct {
		Reading int64 `json:"reading"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Reading < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading must not be negative"})
		return
	}

	vehicle, err := h.store.RecordOdometer(id, req.Reading)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record odometer"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("vehicle", "updated", id, nil))
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete vehicle"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("vehicle", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

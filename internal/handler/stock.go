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

type StockHandler struct {
	store  *store.StockStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewStockHandler(s *store.StockStore, hub *websocket.Hub, logger *slog.Logger) *StockHandler {
	return &StockHandler{store: s, hub: hub, logger: logger}
}

type stockRequest struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	MinQuantity float64 `json:"min_quantity"`
	BestBefore  string  `json:"best_before"`
}

func (h *StockHandler) parseStock(w http.ResponseWriter, r *http.Request) (*store.StockParams, bool) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return nil, false
	}
	if req.Quantity < 0 || req.MinQuantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantities must not be negative"})
		return nil, false
	}

	p := store.StockParams{
		Name:        req.Name,
		Location:    req.Location,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		MinQuantity: req.MinQuantity,
	}
	if req.BestBefore != "" {
		t, err := time.Parse("2006-01-02", req.BestBefore)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "best_before must be YYYY-MM-DD format"})
			return nil, false
		}
		p.BestBefore = &t
	}
	return &p, true
}

func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	var items []model.StockItem
	var err error

	// ?below_min=true narrows to items under their minimum.
	if r.URL.Query().Get("below_min") == "true" {
		items, err = h.store.ListBelowMin()
	} else {
		items, err = h.store.List()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list stock items"})
		return
	}
	if items == nil {
		items = []model.StockItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseStock(w, r)
	if !ok {
		return
	}

	item, err := h.store.Create(*p)
	if err != nil {
		h.logger.Error("create stock item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create stock item"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("stock_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stock item"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock item not found"})
		return
	}

	p, ok := h.parseStock(w, r)
	if !ok {
		return
	}

	item, err := h.store.Update(id, *p)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update stock item"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("stock_item", "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

// Adjust changes an item's quantity by a signed delta, clamped at zero.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stock item"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock item not found"})
		return
	}

	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	item, err := h.store.AdjustQuantity(id, req.Delta)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to adjust quantity"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("stock_item", "adjusted", id, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete stock item"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("stock_item", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

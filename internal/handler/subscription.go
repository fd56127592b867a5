package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bywater/internal/feed"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type SubscriptionHandler struct {
	feeds   *store.FeedStore
	members *store.MemberStore
	syncer  *feed.Syncer
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewSubscriptionHandler(fs *store.FeedStore, ms *store.MemberStore, syncer *feed.Syncer, hub *websocket.Hub, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{feeds: fs, members: ms, syncer: syncer, hub: hub, logger: logger}
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.feeds.ListSubscriptions()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []model.FeedSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID int64  `json:"member_id"`
		Name     string `json:"name"`
		URL      string `json:"url"`
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
	if !validFeedURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url must be an http(s) or webcal address"})
		return
	}

	member, err := h.members.GetByID(req.MemberID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
		return
	}
	if member == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "member not found"})
		return
	}

	sub, err := h.feeds.CreateSubscription(uuid.NewString(), req.MemberID, req.Name, normalizeFeedURL(req.URL))
	if err != nil {
		h.logger.Error("create feed subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create subscription"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("feed", "created", sub.ID, nil))
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.feeds.GetSubscription(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get subscription"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "subscription not found"})
		return
	}

	var req struct {
		Name    string `json:"name"`
		URL     string `json:"url"`
		Enabled *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.URL == "" {
		req.URL = existing.URL
	} else if !validFeedURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url must be an http(s) or webcal address"})
		return
	}
	enabled := existing.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sub, err := h.feeds.UpdateSubscription(id, req.Name, normalizeFeedURL(req.URL), enabled)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update subscription"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("feed", "updated", id, nil))
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.feeds.DeleteSubscription(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete subscription"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage("feed", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Sync refreshes one subscription immediately instead of waiting for the
// next scheduled pass.
func (h *SubscriptionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	sub, err := h.feeds.GetSubscription(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get subscription"})
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "subscription not found"})
		return
	}

	if err := h.syncer.Sync(r.Context(), sub); err != nil {
		h.logger.Warn("manual feed sync failed", "subscription_id", id, "error", err)
		h.feeds.MarkSynced(id, time.Now(), err.Error())
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "feed sync failed"})
		return
	}
	h.feeds.MarkSynced(id, time.Now(), "")

	h.hub.Broadcast(websocket.NewMessage("feed", "synced", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func validFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "webcal":
		return u.Host != ""
	}
	return false
}

// normalizeFeedURL rewrites webcal:// to https:// so the fetcher can use a
// plain HTTP client.
func normalizeFeedURL(raw string) string {
	if strings.HasPrefix(raw, "webcal://") {
		return "https://" + strings.TrimPrefix(raw, "webcal://")
	}
	return raw
}

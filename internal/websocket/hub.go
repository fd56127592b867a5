// Package websocket pushes entity change notifications to connected clients
// so every screen in the household reflects a mutation without polling.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is one change notification. Type is "<entity>_<action>" so clients
// can subscribe with a single string match.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks the connected clients and fans broadcast messages out to them.
// A client whose send buffer is full misses the message rather than stalling
// the broadcast; clients are expected to refetch on reconnect anyway.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister drops the client and closes its outbound channel. Safe to call
// more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.out)
}

// Broadcast delivers msg to every connected client that can accept it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		select {
		case c.out <- data:
		default:
			h.logger.Debug("dropping message for slow client", "type", msg.Type)
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	outboundBuffer = 32
	pingEvery      = 30 * time.Second
)

// Client is one connected browser or kiosk screen.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	out  chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		out:  make(chan []byte, outboundBuffer),
	}
}

// Run serves the connection until it closes: register, pump writes in the
// background, block on reads, then unregister.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

// readLoop discards inbound frames; the protocol is one-way. A read error
// means the connection is gone.
func (c *Client) readLoop(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writeLoop drains the outbound channel and pings on an interval so dead
// connections are noticed even when nothing changes.
func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

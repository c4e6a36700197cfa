// Package ws is the websocket transport: it upgrades connections, reads
// client frames, and bridges the connection into the registry so the rest
// of the system can deliver events to it.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	websocket "github.com/coder/websocket"

	"github.com/perchd/perch/internal/chat"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/registry"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// clientFrame is an inbound message from the browser.
type clientFrame struct {
	Type        string             `json:"type"`
	DeviceID    string             `json:"device_id,omitempty"`
	Message     string             `json:"message,omitempty"`
	MediaURLs   []string           `json:"media_urls,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	ReplyTo     []string           `json:"reply_to,omitempty"`
}

// Client is one live connection. It implements registry.Conn; outbound
// writes go through a buffered channel drained by the write pump so a slow
// reader cannot block event producers.
type Client struct {
	userID      string
	conn        *websocket.Conn
	send        chan []byte
	coordinator *chat.Coordinator
	registry    *registry.Registry
	logger      *slog.Logger

	closed chan struct{}
}

func NewClient(userID string, conn *websocket.Conn, coordinator *chat.Coordinator, reg *registry.Registry, logger *slog.Logger) *Client {
	return &Client{
		userID:      userID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		coordinator: coordinator,
		registry:    reg,
		logger:      logger,
		closed:      make(chan struct{}),
	}
}

// WriteText enqueues one outbound frame. A full buffer or closed
// connection is an error; the registry drops the connection on error.
func (c *Client) WriteText(_ context.Context, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Run registers the client, starts the write pump, and runs the read loop
// until the connection dies. It blocks, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.registry.Register(c.userID, c)
	defer c.registry.Unregister(c.userID, c)
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readLoop(ctx)
}

// readLoop parses inbound frames and dispatches them. It returns on read
// error (connection close), which triggers cleanup.
func (c *Client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("malformed client frame", "user_id", c.userID, "error", err)
			continue
		}

		switch frame.Type {
		case "ping":
			c.registry.Send(ctx, c.userID, map[string]any{"type": "pong"})
		case "chat":
			// The coordinator pushes message_sent and the eventual
			// ai_response/ai_error through the registry itself. Turns run
			// concurrently; ordering across turns is completion order.
			go c.handleChat(frame)
		default:
			c.logger.Debug("unknown frame type", "user_id", c.userID, "type", frame.Type)
		}
	}
}

func (c *Client) handleChat(frame clientFrame) {
	// Detached from the connection context: once a turn starts it runs to
	// a terminal state even if the socket drops mid-turn.
	ctx := context.Background()
	_, err := c.coordinator.HandleTurn(ctx, chat.TurnInput{
		UserID:      c.userID,
		DeviceID:    frame.DeviceID,
		Text:        frame.Message,
		Attachments: frame.Attachments,
		MediaURLs:   frame.MediaURLs,
		ReplyTo:     frame.ReplyTo,
	})
	if err != nil {
		c.logger.Error("chat turn failed", "user_id", c.userID, "device_id", frame.DeviceID, "error", err)
		c.registry.Send(ctx, c.userID, map[string]any{
			"type":      "ai_error",
			"device_id": frame.DeviceID,
			"error":     err.Error(),
		})
	}
}

// writePump drains the send channel onto the wire and pings periodically
// to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

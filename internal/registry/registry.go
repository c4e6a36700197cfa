// Package registry tracks one live duplex connection per user and delivers
// server-to-client events over it.
package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Conn is the transport half the registry writes to. The websocket layer
// implements it; tests substitute fakes.
type Conn interface {
	// WriteText writes one text frame. An error marks the connection dead.
	WriteText(ctx context.Context, data []byte) error
	// Close tears down the transport. Safe to call more than once.
	Close() error
}

// Registry maps user IDs to their single live connection. A new Register
// for the same user silently replaces the previous connection; the
// displaced client gets no eviction notice.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]Conn
	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Register installs conn as the user's live connection, replacing and
// closing any previous one.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
	}
	r.logger.Info("connection registered", "user_id", userID)
}

// Unregister removes the user's connection, but only if it is still the
// given one; a replacement connection must not be evicted by the old
// connection's cleanup.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	if r.conns[userID] == conn {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
	r.logger.Info("connection unregistered", "user_id", userID)
}

// Send delivers one event to the user's live connection, if any. It is
// fire-and-forget: on transport failure the stale connection is dropped and
// false is returned. Callers must not retry.
func (r *Registry) Send(ctx context.Context, userID string, event any) bool {
	r.mu.Lock()
	conn := r.conns[userID]
	r.mu.Unlock()

	if conn == nil {
		return false
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("marshal event", "user_id", userID, "error", err)
		return false
	}

	if err := conn.WriteText(ctx, data); err != nil {
		r.logger.Warn("send failed, dropping connection", "user_id", userID, "error", err)
		r.Unregister(userID, conn)
		conn.Close()
		return false
	}
	return true
}

// Connected reports whether the user has a live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[userID] != nil
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

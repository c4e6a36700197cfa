package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteText(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testRegistry() *Registry {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSendToConnectedUser(t *testing.T) {
	r := testRegistry()
	conn := &fakeConn{}
	r.Register("user-1", conn)

	if !r.Send(context.Background(), "user-1", map[string]string{"type": "pong"}) {
		t.Fatal("expected send to succeed")
	}
	if conn.frameCount() != 1 {
		t.Errorf("frames = %d, want 1", conn.frameCount())
	}
}

func TestSendToDisconnectedUser(t *testing.T) {
	r := testRegistry()
	if r.Send(context.Background(), "nobody", map[string]string{"type": "pong"}) {
		t.Error("expected false for unknown user")
	}
}

func TestRegisterReplacesAndClosesPrevious(t *testing.T) {
	r := testRegistry()
	old := &fakeConn{}
	replacement := &fakeConn{}

	r.Register("user-1", old)
	r.Register("user-1", replacement)

	if !old.isClosed() {
		t.Error("expected displaced connection closed")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}

	r.Send(context.Background(), "user-1", "x")
	if replacement.frameCount() != 1 {
		t.Error("event did not reach the replacement connection")
	}
	if old.frameCount() != 0 {
		t.Error("event reached the displaced connection")
	}
}

func TestUnregisterIgnoresStaleConn(t *testing.T) {
	r := testRegistry()
	old := &fakeConn{}
	replacement := &fakeConn{}

	r.Register("user-1", old)
	r.Register("user-1", replacement)

	// The old connection's deferred cleanup must not evict its replacement.
	r.Unregister("user-1", old)
	if !r.Connected("user-1") {
		t.Error("replacement connection was evicted")
	}

	r.Unregister("user-1", replacement)
	if r.Connected("user-1") {
		t.Error("expected user disconnected")
	}
}

func TestSendFailureDropsConnection(t *testing.T) {
	r := testRegistry()
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	r.Register("user-1", conn)

	if r.Send(context.Background(), "user-1", "x") {
		t.Error("expected send to report failure")
	}
	if r.Connected("user-1") {
		t.Error("expected stale connection dropped")
	}
	if !conn.isClosed() {
		t.Error("expected stale connection closed")
	}
}

func TestConcurrentRegisterAndSend(t *testing.T) {
	r := testRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			r.Register("user-1", conn)
			r.Send(context.Background(), "user-1", "x")
			r.Unregister("user-1", conn)
		}()
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Errorf("count = %d, want 0 after all unregister", r.Count())
	}
}

// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
	"time"

	"pulse/internal/analysis"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport error: %v", err)
	}
	defer wst.Close()

	a, b := dial(t, wst), dial(t, wst)
	waitFor(t, func() bool { return wst.Clients() == 2 })

	if err := wst.Send(analysis.TempoEvent(120, 0.5)); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var got map[string]any
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("ReadJSON error: %v", err)
		}
		if got["type"] != "tempo" || got["average"] != 120.0 || got["accuracy"] != 0.5 {
			t.Errorf("received %v", got)
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer wst.Close()

	conn := dial(t, wst)
	waitFor(t, func() bool { return wst.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return wst.Clients() == 0 })
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := wst.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := wst.Send("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestWebSocketListenError(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer wst.Close()

	if _, err := NewWebSocketTransport(wst.Addr()); err == nil {
		t.Error("expected error for an address in use")
	}
}

func TestWebSocketDropsWhenFull(t *testing.T) {
	// No broadcaster drains the queue once closed, so fill it by hand.
	wst := &WebSocketTransport{
		broadcast: make(chan any, 1),
		done:      make(chan struct{}),
	}
	wst.Send(1)
	wst.Send(2)
	wst.Send(3)
	if got := wst.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	for _, v := range []any{analysis.ResetEvent(), map[string]float64{"bpm": 120}, func() {}} {
		if err := lt.Send(v); err != nil {
			t.Errorf("Send(%T) error: %v", v, err)
		}
	}
	if lt.Sent() != 3 {
		t.Errorf("Sent() = %d, want 3", lt.Sent())
	}
	lt.Close()
	if err := lt.Send(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

package server

import (
	"context"
	"net"
	"testing"
	"time"
)

type echoHandler struct{ conn net.Conn }

func (h *echoHandler) Serve(ctx context.Context) {
	defer h.conn.Close()
	buf := make([]byte, 64)
	n, err := h.conn.Read(buf)
	if err != nil {
		return
	}
	_, _ = h.conn.Write(buf[:n])
}

type echoFactory struct{}

func (echoFactory) NewConnection(conn net.Conn) ConnectionHandler {
	return &echoHandler{conn: conn}
}

func TestServer_AcceptsAndEchoes(t *testing.T) {
	s := New(Config{BindAddress: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, "test", nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, echoFactory{}) }()

	addr := s.Addr()
	if addr == "" {
		t.Fatal("expected non-empty listener address")
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("expected echo %q, got %q", "ping", buf)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Serve to return after shutdown")
	}
}

func TestServer_StopDrainsActiveConnections(t *testing.T) {
	s := New(Config{BindAddress: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, "test", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, echoFactory{}) }()

	addr := s.Addr()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

// Package server provides the shared TCP accept-loop lifecycle used by both
// the Name Server and Storage Server listeners: graceful shutdown, connection
// tracking, and a connection-limiting semaphore. Each listening port (NS's
// single port, SS's control and client ports) owns one *Server.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dfs/internal/logger"
)

// ConnectionHandler serves one accepted connection until it closes or the
// context is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory builds a ConnectionHandler for each accepted connection.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// Config holds configuration common to every listener.
type Config struct {
	BindAddress string
	Port        int

	// MaxConnections limits concurrent connections. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Stop waits for in-flight connections.
	ShutdownTimeout time.Duration
}

// Metrics allows a listener to report connection lifecycle counts. A nil
// Metrics means no observability, not an error.
type Metrics interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// Server runs the shared TCP accept loop for one listening port.
type Server struct {
	Config Config
	Name   string // e.g. "ns", "ss-control", "ss-client" — used in log lines
	Metrics Metrics

	listener   net.Listener
	listenerMu sync.RWMutex

	activeConns  sync.WaitGroup
	connCount    atomic.Int32
	connSema     chan struct{}
	activeConnsMap sync.Map // remoteAddr -> net.Conn

	shutdownOnce sync.Once
	shutdown     chan struct{}

	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	listenerReady chan struct{}
}

// New creates a Server in the stopped state. Call Serve to start accepting.
func New(cfg Config, name string, metrics Metrics) *Server {
	var sema chan struct{}
	if cfg.MaxConnections > 0 {
		sema = make(chan struct{}, cfg.MaxConnections)
	}
	shutdownCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		Config:         cfg,
		Name:           name,
		Metrics:        metrics,
		shutdown:       make(chan struct{}),
		connSema:       sema,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancel,
		listenerReady:  make(chan struct{}),
	}
}

// Serve runs the accept loop until ctx is cancelled or Stop is called,
// dispatching each connection to a handler built by factory.
func (s *Server) Serve(ctx context.Context, factory ConnectionFactory) error {
	addr := fmt.Sprintf("%s:%d", s.Config.BindAddress, s.Config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s on %s: %w", s.Name, addr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info(s.Name+" listening", "address", addr)

	go func() {
		<-ctx.Done()
		logger.Info(s.Name+" shutdown signal received", "error", ctx.Err())
		s.initiateShutdown()
	}()

	for {
		if s.connSema != nil {
			select {
			case s.connSema <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.connSema != nil {
				<-s.connSema
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug(s.Name+" accept error", "error", err)
				continue
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)
		addr := conn.RemoteAddr().String()
		s.activeConnsMap.Store(addr, conn)

		if s.Metrics != nil {
			s.Metrics.RecordConnectionAccepted()
			s.Metrics.SetActiveConnections(s.connCount.Load())
		}
		logger.Debug(s.Name+" connection accepted", "address", addr, "active", s.connCount.Load())

		handler := factory.NewConnection(conn)
		go func(addr string, conn net.Conn) {
			defer func() {
				s.activeConnsMap.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSema != nil {
					<-s.connSema
				}
				if s.Metrics != nil {
					s.Metrics.RecordConnectionClosed()
					s.Metrics.SetActiveConnections(s.connCount.Load())
				}
				logger.Debug(s.Name+" connection closed", "address", addr, "active", s.connCount.Load())
			}()
			handler.Serve(s.shutdownCtx)
		}(addr, conn)
	}
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMu.Unlock()

		deadline := time.Now().Add(100 * time.Millisecond)
		s.activeConnsMap.Range(func(_, v any) bool {
			if conn, ok := v.(net.Conn); ok {
				_ = conn.SetReadDeadline(deadline)
			}
			return true
		})

		s.cancelRequests()
	})
}

func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info(s.Name+" waiting for active connections", "active", active, "timeout", s.Config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(s.Name + " shutdown complete")
		return nil
	case <-time.After(s.Config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn(s.Name+" shutdown timeout exceeded, forcing closure", "active", remaining)
		s.forceCloseConnections()
		return fmt.Errorf("server: %s shutdown timeout, %d connections force-closed", s.Name, remaining)
	}
}

func (s *Server) forceCloseConnections() {
	closed := 0
	s.activeConnsMap.Range(func(_, v any) bool {
		if conn, ok := v.(net.Conn); ok {
			if err := conn.Close(); err == nil {
				closed++
				if s.Metrics != nil {
					s.Metrics.RecordConnectionForceClosed()
				}
			}
		}
		return true
	})
	logger.Info(s.Name+" force-closed connections", "count", closed)
}

// Stop initiates graceful shutdown. With a nil ctx it waits up to the
// configured ShutdownTimeout for in-flight connections to drain, then
// force-closes the rest; otherwise it waits until they drain or ctx is done,
// and does not force-close connections still open at that point.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(s.Name + " shutdown complete")
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn(s.Name+" shutdown context cancelled", "active", remaining, "error", ctx.Err())
		return ctx.Err()
	}
}

// ActiveConnections returns the current number of active connections.
func (s *Server) ActiveConnections() int32 { return s.connCount.Load() }

// Addr blocks until the listener is ready and returns its address. Intended
// for tests that bind to port 0.
func (s *Server) Addr() string {
	<-s.listenerReady
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Package server exposes the event gateway to remote clients over a
// websocket, plus health and task endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"aiderdesk/config"
	"aiderdesk/events"
)

// Client actions accepted on the socket.
const (
	ActionSubscribe   = "subscribe-events"
	ActionUnsubscribe = "unsubscribe-events"
)

// ClientFrame is a message sent by a remote client.
type ClientFrame struct {
	Action     string   `json:"action"`
	EventTypes []string `json:"eventTypes,omitempty"`
	BaseDirs   []string `json:"baseDirs,omitempty"`
}

// ServerFrame is a message sent to a remote client.
type ServerFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Server serves the websocket endpoint at /ws, health at /api/health and,
// once WithTasks is called, the task routes under /api/tasks.
type Server struct {
	gateway *events.Gateway
	addr    string
	started time.Time
	tasks   *taskRoutes

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a server that subscribes remote clients to gateway.
func New(addr string, gateway *events.Gateway) *Server {
	return &Server{
		gateway: gateway,
		addr:    addr,
		started: time.Now(),
	}
}

// WithTasks enables starting, cancelling and deleting tasks over HTTP.
func (s *Server) WithTasks(opts TaskOptions) *Server {
	s.tasks = &taskRoutes{opts: opts}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.Server{
		// Non-browser clients connect without an Origin header.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.handleSocket,
	})
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.tasks != nil {
		s.tasks.register(mux)
	}
	return mux
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	if s.tasks != nil {
		s.tasks.setContext(ctx)
	}

	config.Logger().Info("Event server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	}
}

// Addr returns the bound address once Start is listening, or the configured
// address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleSocket(ws *websocket.Conn) {
	conn := newSocketConn(ws)
	logger := config.Logger().With("connectionId", conn.ID())
	logger.Info("Socket connected", "remote", ws.Request().RemoteAddr)

	defer func() {
		s.gateway.Unsubscribe(conn.ID())
		ws.Close()
		logger.Info("Socket disconnected")
	}()

	for {
		var raw []byte
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("Socket read failed", "err", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warn("Invalid client frame", "err", err)
			conn.Emit("error", map[string]string{"message": "invalid frame: " + err.Error()})
			continue
		}

		switch frame.Action {
		case ActionSubscribe:
			s.gateway.Subscribe(conn, events.Filters{
				EventTypes: frame.EventTypes,
				BaseDirs:   frame.BaseDirs,
			})
		case ActionUnsubscribe:
			s.gateway.Unsubscribe(conn.ID())
		default:
			logger.Warn("Unknown client action", "action", frame.Action)
			conn.Emit("error", map[string]string{"message": "unknown action: " + frame.Action})
		}
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Uptime      string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Subscribers: s.gateway.SubscriberCount(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	})
}

// socketConn adapts a websocket to events.Connection.
type socketConn struct {
	id string
	ws *websocket.Conn

	mu sync.Mutex
}

func newSocketConn(ws *websocket.Conn) *socketConn {
	return &socketConn{id: uuid.New().String(), ws: ws}
}

func (c *socketConn) ID() string {
	return c.id
}

// Emit writes a single frame. Writes are serialised since the gateway worker
// and the read loop may both send.
func (c *socketConn) Emit(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	if err := websocket.JSON.Send(c.ws, ServerFrame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s frame: %w", event, err)
	}
	return nil
}

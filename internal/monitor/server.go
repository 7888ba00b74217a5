// Package monitor serves a live feed of console sessions and input frames
// over WebSocket.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/padrelay/padrelay/session"
)

// ServerConfig represents the monitor settings of the run command.
type ServerConfig struct {
	Addr string `help:"Listen address of the live state monitor (WebSocket at /ws); empty disables it" env:"PADRELAY_MONITOR_ADDR"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling
	},
}

// Server exposes a Hub over HTTP.
type Server struct {
	config   ServerConfig
	hub      *Hub
	sessions *session.Registry
	logger   *slog.Logger

	httpServer *http.Server
	ln         net.Listener
	ready      chan struct{}
}

func New(config ServerConfig, hub *Hub, sessions *session.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   config,
		hub:      hub,
		sessions: sessions,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Handler returns the HTTP routes: /ws and /sessions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/sessions", s.handleSessions)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, clientBuffer)}
	s.hub.register(c)
	go c.writePump()
	go c.readPump()
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	snap := s.sessions.Snapshot()
	out := make([]ConsoleInfo, 0, len(snap))
	for _, ss := range snap {
		out = append(out, ConsoleInfo{
			Console:  ss.Name,
			Addr:     ss.Addr.String(),
			LastSeen: ss.LastSeen,
			Frames:   ss.Frames,
			Mask:     ss.Prev,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Debug("Failed to write sessions", "error", err)
	}
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	close(s.ready)
	s.logger.Info("Monitor listening", "addr", ln.Addr().String(), "ws", "/ws")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections. Websocket clients are closed by Hub.Run.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

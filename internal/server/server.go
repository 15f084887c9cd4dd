// Package server is the WebSocket front door: it validates the handshake
// against the store, upgrades the connection and binds the session to its
// room actor.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltround/holdem/internal/room"
	"github.com/feltround/holdem/internal/store"
)

// Server accepts WebSocket sessions on /ws and routes them to room actors.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	store    store.Store
	rooms    *room.Registry
	logger   *log.Logger
	http     *http.Server

	mu          sync.Mutex
	connections map[*Connection]struct{}
}

// NewServer creates the WebSocket server.
func NewServer(addr string, st store.Store, rooms *room.Registry, logger *log.Logger) *Server {
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		store:       st,
		rooms:       rooms,
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting websocket server", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down and closes every live session.
func (s *Server) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

// handleWebSocket validates userId and roomId against the store, upgrades
// the connection and joins the session to its room.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid userId", http.StatusBadRequest)
		return
	}
	roomID, err := strconv.ParseInt(r.URL.Query().Get("roomId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid roomId", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := s.store.User(ctx, userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, user.ID, user.Username, s.logger)
	if err := s.joinRoom(ctx, roomID, client); err != nil {
		s.logger.Warn("join rejected", "userId", userID, "roomId", roomID, "error", err)
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": err.Error()})
		_ = conn.Close()
		return
	}

	s.track(client)
	client.Start()
	s.logger.Info("client connected", "userId", userID, "roomId", roomID)

	go func() {
		<-client.Done()
		s.untrack(client)
		s.logger.Info("client disconnected", "userId", userID, "roomId", roomID)
	}()
}

// joinRoom binds the client to its room actor. A room can shut down between
// lookup and join when its last session leaves; one retry covers that window.
func (s *Server) joinRoom(ctx context.Context, roomID int64, client *Connection) error {
	for attempt := 0; attempt < 2; attempt++ {
		rm, err := s.rooms.Get(ctx, roomID)
		if err != nil {
			return err
		}
		err = rm.Join(ctx, client)
		if errors.Is(err, room.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return err
		}
		client.room = rm
		return nil
	}
	return room.ErrRoomClosed
}

func (s *Server) track(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn] = struct{}{}
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

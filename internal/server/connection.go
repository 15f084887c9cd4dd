package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/feltround/holdem/internal/protocol"
	"github.com/feltround/holdem/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection is one WebSocket session, bound to a user and a room for its
// whole lifetime. It implements room.Client.
type Connection struct {
	sessionID string
	userID    int64
	username  string
	conn      *websocket.Conn
	room      *room.Room
	send      chan *protocol.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket for a validated user.
func NewConnection(conn *websocket.Conn, userID int64, username string, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	sessionID := uuid.NewString()

	return &Connection{
		sessionID: sessionID,
		userID:    userID,
		username:  username,
		conn:      conn,
		send:      make(chan *protocol.Message, 256),
		logger:    logger.WithPrefix("conn").With("session", sessionID, "userId", userID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// UserID implements room.Client.
func (c *Connection) UserID() int64 { return c.userID }

// Username implements room.Client.
func (c *Connection) Username() string { return c.username }

// Send queues a frame for the client. A full buffer means the consumer is
// not keeping up; the connection is dropped rather than blocking the room.
func (c *Connection) Send(msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
	}
}

// Start begins handling the connection. The room must already have accepted
// the session's Join.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the session down.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the session has ended.
func (c *Connection) Done() <-chan struct{} { return c.ctx.Done() }

// readPump parses client frames and hands them to the room. Exiting the
// loop, for any reason, leaves the room.
func (c *Connection) readPump() {
	defer func() {
		if c.room != nil {
			c.room.Leave(c.userID)
		}
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		// A frame that does not parse is dropped; the session lives on
		var msg protocol.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		c.logger.Debug("received message", "type", msg.Type)
		c.room.Deliver(c, &msg)
	}
}

// writePump serializes outgoing frames and keeps the connection alive with
// pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

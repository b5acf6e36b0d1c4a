package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket timeout constants following Gorilla best practices
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer; kiosk clients only send
	// small control frames
	maxMessageSize = 4096
)

// Client represents a WebSocket kiosk client connection
type Client struct {
	server *Server
	conn   *websocket.Conn
	id     string

	// mu guards sendMsg against sends racing close
	mu      sync.Mutex
	sendMsg chan interface{}
	closed  bool
}

// clientMessage is the inbound control frame from kiosk frontends.
type clientMessage struct {
	Type string `json:"type"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		server:  s,
		conn:    conn,
		sendMsg: make(chan interface{}, 32),
		id:      uuid.New().String()[:8],
	}

	s.mu.Lock()
	s.clients[client] = true
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("WebSocket client connected", "client_id", client.id, "clients", clientCount)

	// Push the current state so a reconnecting kiosk renders immediately
	s.sendSnapshot(client)

	go client.writePump()
	go client.readPump()
}

// sendSnapshot queues the current session and task state for one client.
func (s *Server) sendSnapshot(client *Client) {
	if s.sessions == nil {
		return
	}
	client.queue(sessionUpdateMessage{Type: "session_update", Session: s.sessions.Current()})
	tasks := s.sessions.Tasks()
	client.queue(tasksUpdateMessage{Type: "tasks_update", Tasks: tasks, Count: len(tasks)})
}

// queue enqueues a message, dropping it when the client is too slow or
// already closed.
func (c *Client) queue(msg interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.sendMsg <- msg:
	default:
	}
}

// close tears the connection down once. The closed flag flips under the same
// lock queue holds, so no broadcast can reach the channel after it closes.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.sendMsg)
	c.conn.Close()
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.server.logger.Warnw("JSON unmarshal error",
				"error", err.Error(),
				"client_id", c.id)
			continue
		}

		c.routeMessage(&msg)
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes are silently ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			"client_id", c.id,
			"error", err)
	}
}

// routeMessage dispatches incoming WebSocket messages.
func (c *Client) routeMessage(msg *clientMessage) {
	switch msg.Type {
	case "refresh":
		// The frontend asks for a re-resolve, e.g. after its page timer
		if c.server.sessions != nil {
			c.server.sessions.Refresh()
		}
	case "ping":
		// Deadline already extended by the pong handler
	default:
		c.server.logger.Debugw("Unknown message type",
			"type", msg.Type,
			"client_id", c.id)
	}
}

// writePump writes queued messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendMsg:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("WebSocket write failed",
					"client_id", c.id,
					"error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	delete(s.clients, client)
	clientCount := len(s.clients)
	s.mu.Unlock()
	s.logger.Infow("WebSocket client disconnected", "client_id", client.id, "clients", clientCount)
}

package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// client is one transport connection bound to a session. Outbound messages
// go through the buffered send channel so the manager never blocks on a
// slow connection. The mutex covers closed and the channel together: close
// and enqueue race from different goroutines (stale-binding takeover, read
// loop teardown, broadcasts), and a send on a closed channel panics.
type client struct {
	server    *Server
	conn      *websocket.Conn
	sessionID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(server *Server, conn *websocket.Conn, sessionID string) *client {
	return &client{
		server:    server,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func (that *client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

// enqueue - queues one outbound frame without blocking. Reports false when
// the client is closed or its buffer is full; the caller drops the client.
func (that *client) enqueue(data []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

// readPump - reads inbound messages in order and dispatches them one at a
// time. Returns when the connection drops or is force-closed.
func (that *client) readPump() {
	defer that.close()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			return
		}

		that.server.dispatch(that, data)
	}
}

// writePump - drains the send channel onto the connection and keeps the
// connection alive with pings.
func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

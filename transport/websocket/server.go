package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playgrid/reversi-backend/internal/entity"
	"github.com/playgrid/reversi-backend/internal/protocol"
)

type gameManager interface {
	Connect(sessionID string) *entity.Session
	Resume(sessionID string)
	Disconnect(sessionID string)

	JoinQueue(sessionID string) error
	CancelQueue(sessionID string) error

	CreateRoom(sessionID string) error
	JoinRoom(sessionID, matchKey string) error
	Spectate(sessionID, matchKey string) error

	MakeMove(sessionID string, index int) error
	Leave(sessionID string) error
}

type Server struct {
	logger  *slog.Logger
	manager gameManager

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func New(logger *slog.Logger, manager gameManager) *Server {
	return &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},

		clients: make(map[string]*client),
	}
}

// Handler - returns the HTTP handler serving the /ws endpoint.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleConnection)

	return mux
}

// Start - starts the WebSocket server and blocks until the context is
// cancelled or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection - upgrades the connection, resolves the optional session
// query parameter to a session, and runs the read loop until the connection
// drops.
func (that *Server) handleConnection(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	session := that.manager.Connect(req.URL.Query().Get("session"))

	c := newClient(that, conn, session.ID)
	that.bind(c)

	go c.writePump()

	that.Send(session.ID, protocol.KindSessionHello, protocol.SessionHelloPayload{SessionID: session.ID})
	that.manager.Resume(session.ID)

	c.readPump()

	// a rebind may have displaced this client already; only the current
	// binding reports a disconnect, or the eviction timer would be armed
	// against a session that just reconnected
	if that.unbind(c) {
		that.manager.Disconnect(session.ID)
	}
}

// bind - registers the client as the session's single live binding, forcibly
// terminating any stale one.
func (that *Server) bind(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if stale, ok := that.clients[c.sessionID]; ok {
		stale.close()
	}

	that.clients[c.sessionID] = c
}

// unbind - removes the client only if it is still the current binding, so a
// rebind that already replaced it is left untouched. Reports whether the
// client was the current binding.
func (that *Server) unbind(c *client) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.clients[c.sessionID]; ok && current == c {
		delete(that.clients, c.sessionID)
		return true
	}

	return false
}

// Send - delivers one message to the session's current binding. Never
// blocks: a client whose send buffer is full is dropped and will resync on
// reconnect.
func (that *Server) Send(sessionID, msgType string, payload any) {
	log := that.logger.With("method", "Send")

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal payload", "type", msgType, "error", err)
		return
	}

	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: raw})
	if err != nil {
		log.Error("failed to marshal message", "type", msgType, "error", err)
		return
	}

	that.mu.RLock()
	c, ok := that.clients[sessionID]
	that.mu.RUnlock()

	if !ok {
		// disconnected session: it converges from Resume on reconnect
		return
	}

	if !c.enqueue(data) {
		log.Warn("client not writable, dropping", "sessionID", sessionID, "type", msgType)
		c.close()
	}
}

func (that *Server) sendError(sessionID, message string) {
	that.Send(sessionID, protocol.KindProtocolError, protocol.ProtocolErrorPayload{Message: message})
}

package usecase

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playgrid/reversi-backend/internal/entity"
	"github.com/playgrid/reversi-backend/internal/protocol"
	"github.com/playgrid/reversi-backend/internal/reversi"
)

// Notifier delivers an outbound message to a session's current transport
// binding. Implementations must never block: the manager calls Send while
// holding its lock.
type Notifier interface {
	Send(sessionID, msgType string, payload any)
}

// MatchArchive records finished match summaries. Best effort only.
type MatchArchive interface {
	Record(ctx context.Context, record *entity.MatchRecord) error
}

// Manager owns the session registry, the matchmaking queue, and the active
// room index. Every mutation - inbound message, disconnect, eviction timer,
// sweep tick - runs start to finish under one mutex, so no two transitions
// of the same room, session, or queue ever interleave.
type Manager struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entity.Session
	rooms    map[string]*entity.Room
	queue    []string

	notifier Notifier
	archive  MatchArchive

	turnTimeout     time.Duration
	disconnectGrace time.Duration
}

func NewManager(logger *slog.Logger, turnTimeout, disconnectGrace time.Duration, archive MatchArchive) *Manager {
	return &Manager{
		logger: logger.With("component", "manager"),

		sessions: make(map[string]*entity.Session),
		rooms:    make(map[string]*entity.Room),

		archive: archive,

		turnTimeout:     turnTimeout,
		disconnectGrace: disconnectGrace,
	}
}

// SetNotifier - binds the transport after construction; the transport itself
// needs the manager first.
func (that *Manager) SetNotifier(notifier Notifier) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.notifier = notifier
}

// Connect - resolves a presented session identifier to a live session,
// cancelling any pending eviction, or mints a fresh idle session.
func (that *Manager) Connect(presentedID string) *entity.Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	if presentedID != "" {
		if session, ok := that.sessions[presentedID]; ok {
			session.CancelEviction()
			session.Connected = true

			that.logger.Info("session reconnected", "sessionID", session.ID)

			return session
		}
	}

	session := entity.NewSession(uuid.NewString())
	that.sessions[session.ID] = session

	that.logger.Info("session created", "sessionID", session.ID)

	return session
}

// Resume - resends the status-appropriate snapshot to a freshly (re)bound
// session so a reconnecting client converges without further requests.
func (that *Manager) Resume(sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return
	}

	switch session.Status {
	case entity.SessionQueued:
		that.sendLocked(session.ID, protocol.KindQueueStatus, protocol.QueueStatusPayload{Searching: true})
	case entity.SessionWaiting:
		that.sendLocked(session.ID, protocol.KindRoomWaiting, protocol.RoomWaitingPayload{
			MatchKey: session.RoomKey,
			YourDisk: session.Disk,
		})
	case entity.SessionPlaying, entity.SessionSpectating:
		room, found := that.rooms[session.RoomKey]
		if !found {
			session.Reset()
			return
		}

		role := protocol.RolePlayer
		if session.Status == entity.SessionSpectating {
			role = protocol.RoleSpectator
		}

		that.sendLocked(session.ID, protocol.KindRoomStart, protocol.RoomStartPayload{
			Role:     role,
			YourDisk: session.Disk,
			MatchKey: room.Key,
			State:    room.Snapshot(),
		})
	}
}

// Disconnect - marks the session unbound and arms its eviction timer. If no
// reconnection arrives within the grace period the session is treated as an
// explicit leave and deleted.
func (that *Manager) Disconnect(sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return
	}

	session.Connected = false
	session.ScheduleEviction(that.disconnectGrace, func() {
		that.evict(sessionID)
	})

	that.logger.Info("session disconnected, eviction scheduled", "sessionID", sessionID, "grace", that.disconnectGrace)
}

func (that *Manager) evict(sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok || session.Connected {
		return
	}

	that.leaveLocked(session)
	delete(that.sessions, sessionID)

	that.logger.Info("session evicted", "sessionID", sessionID)
}

func (that *Manager) sendLocked(sessionID, msgType string, payload any) {
	if that.notifier == nil {
		return
	}

	that.notifier.Send(sessionID, msgType, payload)
}

func (that *Manager) randomDisks() (string, string) {
	if rand.Intn(2) == 0 { //nolint:gosec // seat assignment needs no crypto source
		return reversi.DiskBlack, reversi.DiskWhite
	}

	return reversi.DiskWhite, reversi.DiskBlack
}

package usecase

import (
	"time"

	"github.com/playgrid/reversi-backend/internal/apperror"
	"github.com/playgrid/reversi-backend/internal/entity"
	"github.com/playgrid/reversi-backend/internal/protocol"
)

// JoinQueue - appends the session to the matchmaking queue and pairs the two
// oldest entrants as soon as the queue holds at least two.
func (that *Manager) JoinQueue(sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if session.Status == entity.SessionQueued {
		return apperror.ErrAlreadyQueued
	}

	if !session.IsIdle() {
		return apperror.ErrAlreadyInRoom
	}

	that.queue = append(that.queue, session.ID)
	session.Status = entity.SessionQueued

	that.sendLocked(session.ID, protocol.KindQueueStatus, protocol.QueueStatusPayload{Searching: true})

	that.pairLocked()

	return nil
}

// CancelQueue - removes the session from the queue if present. A no-op
// otherwise; the acknowledgement is sent either way.
func (that *Manager) CancelQueue(sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	that.removeFromQueueLocked(session.ID)
	if session.Status == entity.SessionQueued {
		session.Status = entity.SessionIdle
	}

	that.sendLocked(session.ID, protocol.KindQueueStatus, protocol.QueueStatusPayload{Searching: false})

	return nil
}

func (that *Manager) removeFromQueueLocked(sessionID string) {
	for i, id := range that.queue {
		if id == sessionID {
			that.queue = append(that.queue[:i], that.queue[i+1:]...)
			return
		}
	}
}

func (that *Manager) pairLocked() {
	for len(that.queue) >= 2 {
		first, second := that.queue[0], that.queue[1]
		that.queue = that.queue[2:]

		sessionA, okA := that.sessions[first]
		sessionB, okB := that.sessions[second]

		// a popped entrant may have been evicted between enqueue and
		// pairing; the valid one goes back to the front
		switch {
		case !okA && !okB:
			continue
		case !okA:
			that.queue = append([]string{second}, that.queue...)
			continue
		case !okB:
			that.queue = append([]string{first}, that.queue...)
			continue
		}

		that.startRandomMatchLocked(sessionA, sessionB)
	}
}

func (that *Manager) startRandomMatchLocked(sessionA, sessionB *entity.Session) {
	room := entity.NewRoom(that.newMatchKeyLocked())

	// randomized 50/50 seats so queue order does not determine disks
	diskA, diskB := that.randomDisks()
	room.Seats[diskA] = sessionA.ID
	room.Seats[diskB] = sessionB.ID

	room.Start()
	room.Deadline = time.Now().Add(that.turnTimeout)
	that.rooms[room.Key] = room

	sessionA.Status = entity.SessionPlaying
	sessionA.RoomKey = room.Key
	sessionA.Disk = diskA

	sessionB.Status = entity.SessionPlaying
	sessionB.RoomKey = room.Key
	sessionB.Disk = diskB

	snapshot := room.Snapshot()
	for _, session := range []*entity.Session{sessionA, sessionB} {
		that.sendLocked(session.ID, protocol.KindRoomStart, protocol.RoomStartPayload{
			Role:     protocol.RolePlayer,
			YourDisk: session.Disk,
			MatchKey: room.Key,
			State:    snapshot,
		})
	}

	that.logger.Info("random match started", "matchKey", room.Key)
}

package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/playgrid/reversi-backend/internal/apperror"
	"github.com/playgrid/reversi-backend/internal/entity"
	"github.com/playgrid/reversi-backend/internal/protocol"
	"github.com/playgrid/reversi-backend/internal/reversi"
)

const (
	matchKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	matchKeyLength   = 6
)

const archiveTimeout = 5 * time.Second

// newMatchKeyLocked - generates a human-shareable key, regenerating on the
// off chance it collides with a live room.
func (that *Manager) newMatchKeyLocked() string {
	for {
		key := make([]byte, matchKeyLength)
		for i := range key {
			key[i] = matchKeyAlphabet[rand.Intn(len(matchKeyAlphabet))] //nolint:gosec // keys are shareable, not secret
		}

		if _, exists := that.rooms[string(key)]; !exists {
			return string(key)
		}
	}
}

// CreateRoom - creates a private waiting room with the creator seated on the
// default disk.
func (that *Manager) CreateRoom(sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if !session.IsIdle() {
		return apperror.ErrAlreadyInRoom
	}

	room := entity.NewRoom(that.newMatchKeyLocked())
	room.Seats[reversi.DiskBlack] = session.ID
	that.rooms[room.Key] = room

	session.Status = entity.SessionWaiting
	session.RoomKey = room.Key
	session.Disk = reversi.DiskBlack

	that.sendLocked(session.ID, protocol.KindRoomWaiting, protocol.RoomWaitingPayload{
		MatchKey: room.Key,
		YourDisk: session.Disk,
	})

	that.logger.Info("room created", "matchKey", room.Key)

	return nil
}

// JoinRoom - seats the session in a waiting room by key. A playing room with
// both seats filled answers with a one-shot spectate offer instead of an
// error.
func (that *Manager) JoinRoom(sessionID, matchKey string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if !session.IsIdle() {
		return apperror.ErrAlreadyInRoom
	}

	room, found := that.rooms[matchKey]
	if !found {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, matchKey)
	}

	if room.IsFinished() {
		return apperror.ErrGameFinished
	}

	if room.IsPlaying() {
		that.sendLocked(session.ID, protocol.KindSpectateOffer, protocol.SpectateOfferPayload{MatchKey: room.Key})
		return nil
	}

	that.seatSecondLocked(room, session)

	return nil
}

// Spectate - attaches the session to a playing room as a spectator. Against
// a room still waiting for an opponent it seats the requester instead.
func (that *Manager) Spectate(sessionID, matchKey string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if !session.IsIdle() {
		return apperror.ErrAlreadyInRoom
	}

	room, found := that.rooms[matchKey]
	if !found {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, matchKey)
	}

	if room.IsFinished() {
		return apperror.ErrGameFinished
	}

	if room.IsWaiting() {
		that.seatSecondLocked(room, session)
		return nil
	}

	room.Spectators[session.ID] = struct{}{}
	session.Status = entity.SessionSpectating
	session.RoomKey = room.Key

	that.sendLocked(session.ID, protocol.KindRoomStart, protocol.RoomStartPayload{
		Role:     protocol.RoleSpectator,
		MatchKey: room.Key,
		State:    room.Snapshot(),
	})

	that.broadcastUpdateExceptLocked(room, session.ID)

	return nil
}

// seatSecondLocked - fills the second seat, (re)initializes the board, and
// starts the match.
func (that *Manager) seatSecondLocked(room *entity.Room, session *entity.Session) {
	disk := room.FreeDisk()
	room.Seats[disk] = session.ID

	room.Start()
	room.Deadline = time.Now().Add(that.turnTimeout)

	session.Status = entity.SessionPlaying
	session.RoomKey = room.Key
	session.Disk = disk

	for _, seatID := range room.Seats {
		seated, ok := that.sessions[seatID]
		if !ok {
			continue
		}

		seated.Status = entity.SessionPlaying

		that.sendLocked(seated.ID, protocol.KindRoomStart, protocol.RoomStartPayload{
			Role:     protocol.RolePlayer,
			YourDisk: seated.Disk,
			MatchKey: room.Key,
			State:    room.Snapshot(),
		})
	}

	that.logger.Info("match started", "matchKey", room.Key)
}

// MakeMove - applies a move intent from a seated player and broadcasts the
// resulting snapshot to every seat and spectator.
func (that *Manager) MakeMove(sessionID string, index int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if session.RoomKey == "" {
		return apperror.ErrNotInRoom
	}

	room, found := that.rooms[session.RoomKey]
	if !found {
		session.Reset()
		return apperror.ErrNotInRoom
	}

	disk, seated := room.SeatOf(session.ID)
	if !seated {
		return apperror.ErrSpectatorMove
	}

	if err := room.ApplyMove(disk, index); err != nil {
		return err
	}

	if room.IsFinished() {
		that.finishRoomLocked(room, protocol.EndGameOver)
		return nil
	}

	room.Deadline = time.Now().Add(that.turnTimeout)
	that.broadcastUpdateExceptLocked(room, "")

	return nil
}

// Leave - resolves an explicit leave intent. Idempotent while idle.
func (that *Manager) Leave(sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[sessionID]
	if !ok {
		return nil
	}

	that.leaveLocked(session)

	return nil
}

// leaveLocked - shared by explicit leave and eviction.
func (that *Manager) leaveLocked(session *entity.Session) {
	switch session.Status {
	case entity.SessionIdle:
		// nothing to do

	case entity.SessionQueued:
		that.removeFromQueueLocked(session.ID)
		session.Status = entity.SessionIdle
		that.sendLocked(session.ID, protocol.KindQueueStatus, protocol.QueueStatusPayload{Searching: false})

	case entity.SessionSpectating:
		if room, found := that.rooms[session.RoomKey]; found {
			delete(room.Spectators, session.ID)
			that.broadcastUpdateExceptLocked(room, "")
		}
		session.Reset()

	case entity.SessionWaiting:
		// no opponent yet to declare a winner, the room goes away outright
		if room, found := that.rooms[session.RoomKey]; found {
			room.FinishForfeit(entity.NoWinner, "room closed")
			that.finishRoomLocked(room, protocol.EndAbandoned)
		} else {
			session.Reset()
		}

	case entity.SessionPlaying:
		room, found := that.rooms[session.RoomKey]
		if !found {
			session.Reset()
			return
		}

		winner := reversi.OtherDisk(session.Disk)
		room.FinishForfeit(winner, fmt.Sprintf("%s wins by forfeit", winner))
		that.finishRoomLocked(room, protocol.EndForfeit)
	}
}

// finishRoomLocked - sends the terminal broadcast to every bound session,
// resets their membership, removes the room from the active index, and
// archives the result.
func (that *Manager) finishRoomLocked(room *entity.Room, reason string) {
	snapshot := room.Snapshot()

	for _, memberID := range room.Members() {
		that.sendLocked(memberID, protocol.KindRoomEnd, protocol.RoomEndPayload{
			Reason: reason,
			State:  snapshot,
		})

		if member, ok := that.sessions[memberID]; ok {
			member.Reset()
		}
	}

	delete(that.rooms, room.Key)

	that.logger.Info("room finished", "matchKey", room.Key, "reason", reason, "winner", room.Winner)

	that.archiveRoom(room, reason)
}

func (that *Manager) broadcastUpdateExceptLocked(room *entity.Room, exceptID string) {
	snapshot := room.Snapshot()

	for _, memberID := range room.Members() {
		if memberID == exceptID {
			continue
		}

		that.sendLocked(memberID, protocol.KindRoomUpdate, protocol.RoomUpdatePayload{State: snapshot})
	}
}

// archiveRoom - records the finished match off the event path so a slow
// archive can never delay room processing.
func (that *Manager) archiveRoom(room *entity.Room, reason string) {
	if that.archive == nil || reason == protocol.EndAbandoned {
		return
	}

	black, white := reversi.CountDisks(room.Board)
	record := &entity.MatchRecord{
		Key:        room.Key,
		Winner:     room.Winner,
		Reason:     reason,
		ScoreBlack: black,
		ScoreWhite: white,
		StartedAt:  room.CreatedAt,
		FinishedAt: time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := that.archive.Record(ctx, record); err != nil {
			that.logger.Error("failed to archive match", "matchKey", record.Key, "error", err)
		}
	}()
}

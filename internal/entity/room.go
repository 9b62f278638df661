package entity

import (
	"fmt"
	"time"

	"github.com/playgrid/reversi-backend/internal/apperror"
	"github.com/playgrid/reversi-backend/internal/reversi"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

const (
	WinnerDraw = "draw"
	NoWinner   = ""
)

// NoMove marks a room where no move has been played yet.
const NoMove = -1

// Room owns the authoritative state of one match. All transitions happen on
// this entity; callers are responsible for serializing access to it.
type Room struct {
	Key        string
	Board      reversi.Board
	ActiveDisk string
	LastMove   int
	Seats      map[string]string // disk -> session ID
	Spectators map[string]struct{}
	Status     string
	Message    string
	Winner     string
	CreatedAt  time.Time
	Deadline   time.Time // zero unless the room is playing
}

func NewRoom(key string) *Room {
	return &Room{
		Key:        key,
		LastMove:   NoMove,
		Seats:      make(map[string]string),
		Spectators: make(map[string]struct{}),
		Status:     StatusWaiting,
		Message:    "waiting for an opponent",
		CreatedAt:  time.Now(),
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

// FreeDisk - returns the unseated disk of a waiting room.
func (that *Room) FreeDisk() string {
	if _, ok := that.Seats[reversi.DiskBlack]; !ok {
		return reversi.DiskBlack
	}

	return reversi.DiskWhite
}

// SeatOf - returns the disk held by the given session, if seated.
func (that *Room) SeatOf(sessionID string) (string, bool) {
	for disk, id := range that.Seats {
		if id == sessionID {
			return disk, true
		}
	}

	return "", false
}

// Members - returns every session bound to the room, seats first.
func (that *Room) Members() []string {
	members := make([]string, 0, len(that.Seats)+len(that.Spectators))

	for _, id := range that.Seats {
		members = append(members, id)
	}
	for id := range that.Spectators {
		members = append(members, id)
	}

	return members
}

// Start - (re)initializes the board and puts the room into playing state.
// Called at the moment both seats fill, never at creation, so a delayed
// joiner can not see a stale advanced board.
func (that *Room) Start() {
	that.Board = reversi.InitialBoard()
	that.ActiveDisk = reversi.DiskBlack
	that.LastMove = NoMove
	that.Status = StatusPlaying
	that.Winner = NoWinner
	that.Message = fmt.Sprintf("%s to move", reversi.DiskBlack)
}

// ApplyMove - validates and applies a move for the given disk, then runs the
// post-move status recomputation (turn advance, auto-pass, or finish).
func (that *Room) ApplyMove(disk string, index int) error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	}

	if disk != that.ActiveDisk {
		return apperror.ErrNotYourTurn
	}

	flips, ok := reversi.LegalMoves(that.Board, disk)[index]
	if !ok {
		return fmt.Errorf("%w: cell %d", apperror.ErrIllegalMove, index)
	}

	that.Board = reversi.ApplyMove(that.Board, index, disk, flips)
	that.LastMove = index
	that.advanceTurn(disk)

	return nil
}

func (that *Room) advanceTurn(disk string) {
	next := reversi.OtherDisk(disk)

	if len(reversi.LegalMoves(that.Board, next)) > 0 {
		that.ActiveDisk = next
		that.Message = fmt.Sprintf("%s to move", next)
		return
	}

	// auto-pass: the turn silently transfers back without client action
	if len(reversi.LegalMoves(that.Board, disk)) > 0 {
		that.ActiveDisk = disk
		that.Message = fmt.Sprintf("%s has no legal moves, %s moves again", next, disk)
		return
	}

	that.finishByCount()
}

func (that *Room) finishByCount() {
	black, white := reversi.CountDisks(that.Board)

	switch {
	case black > white:
		that.Winner = reversi.DiskBlack
		that.Message = fmt.Sprintf("%s wins %d:%d", reversi.DiskBlack, black, white)
	case white > black:
		that.Winner = reversi.DiskWhite
		that.Message = fmt.Sprintf("%s wins %d:%d", reversi.DiskWhite, white, black)
	default:
		that.Winner = WinnerDraw
		that.Message = fmt.Sprintf("draw %d:%d", black, white)
	}

	that.Status = StatusFinished
	that.ActiveDisk = reversi.EmptyCell
	that.Deadline = time.Time{}
}

// FinishForfeit - resolves the room in favor of winnerDisk without a board
// outcome (leave, eviction, or turn timeout).
func (that *Room) FinishForfeit(winnerDisk, message string) {
	that.Status = StatusFinished
	that.Winner = winnerDisk
	that.ActiveDisk = reversi.EmptyCell
	that.Deadline = time.Time{}
	that.Message = message
}

// Snapshot - builds the complete broadcastable representation of the room.
// Every recipient of a room receives the identical snapshot after any
// mutation.
func (that *Room) Snapshot() *Snapshot {
	black, white := reversi.CountDisks(that.Board)

	snapshot := &Snapshot{
		MatchKey:   that.Key,
		Board:      that.Board,
		ActiveDisk: that.ActiveDisk,
		LastMove:   that.LastMove,
		Score:      Score{Black: black, White: white},
		Spectators: len(that.Spectators),
		Message:    that.Message,
		Winner:     that.Winner,
	}

	if !that.Deadline.IsZero() {
		snapshot.Deadline = that.Deadline.UnixMilli()
	}

	return snapshot
}

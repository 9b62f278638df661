package apperror

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRoomNotFound    = errors.New("unknown match key")

	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrSpectatorMove    = errors.New("spectators cannot move")

	ErrNotInRoom     = errors.New("not in a room")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrAlreadyQueued = errors.New("already searching for a match")
)

package entity

import (
	"time"

	"github.com/playgrid/reversi-backend/internal/reversi"
)

// Score holds the per-disk totals of a board.
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// Snapshot is the wire representation of a room state. Its field names are
// part of the protocol contract and must not change.
type Snapshot struct {
	MatchKey   string        `json:"matchKey"`
	Board      reversi.Board `json:"board"`
	ActiveDisk string        `json:"activeDisk"`
	LastMove   int           `json:"lastMove"`
	Score      Score         `json:"score"`
	Spectators int           `json:"spectators"`
	Message    string        `json:"message"`
	Winner     string        `json:"winner"`
	Deadline   int64         `json:"deadline,omitempty"` // unix milliseconds
}

// MatchRecord is the archived summary of a finished match.
type MatchRecord struct {
	Key        string    `json:"key"`
	Winner     string    `json:"winner"`
	Reason     string    `json:"reason"`
	ScoreBlack int       `json:"score_black"`
	ScoreWhite int       `json:"score_white"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

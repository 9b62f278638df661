package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/playgrid/reversi-backend/internal/protocol"
	"github.com/playgrid/reversi-backend/internal/reversi"
)

const (
	minSweepInterval = time.Second
	maxSweepInterval = 5 * time.Second
)

// Run - drives the turn-timeout sweeper until the context is cancelled. The
// tick interval is derived from the turn timeout so a deadline is detected
// with sub-window granularity; the interval affects detection latency only,
// never the deadline value itself.
func (that *Manager) Run(ctx context.Context) {
	interval := that.turnTimeout / 3
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}

	that.logger.Info("turn-timeout sweeper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			that.logger.Info("turn-timeout sweeper stopped")
			return
		case <-ticker.C:
			that.sweep()
		}
	}
}

// sweep - resolves every playing room whose absolute deadline has passed.
// A room resolved by another trigger within the same window is no longer
// playing and is skipped naturally.
func (that *Manager) sweep() {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := time.Now()

	for _, room := range that.rooms {
		if !room.IsPlaying() || room.Deadline.IsZero() || now.Before(room.Deadline) {
			continue
		}

		loser := room.ActiveDisk
		winner := reversi.OtherDisk(loser)

		room.FinishForfeit(winner, fmt.Sprintf("%s ran out of time, %s wins", loser, winner))
		that.finishRoomLocked(room, protocol.EndTimeout)
	}
}

package entity

import "time"

const (
	SessionIdle       = "idle"
	SessionQueued     = "queued"
	SessionWaiting    = "waiting"
	SessionPlaying    = "playing"
	SessionSpectating = "spectating"
)

// Session is a participant identity that outlives any single transport
// connection. The eviction timer runs while the session is disconnected.
type Session struct {
	ID        string
	Status    string
	RoomKey   string
	Disk      string
	Connected bool

	eviction *time.Timer
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Status:    SessionIdle,
		Connected: true,
	}
}

// ScheduleEviction - arms the disconnect-eviction timer, replacing any
// previous one.
func (that *Session) ScheduleEviction(grace time.Duration, fn func()) {
	that.CancelEviction()
	that.eviction = time.AfterFunc(grace, fn)
}

// CancelEviction - stops a pending eviction timer. Must be called on every
// reconnect so a stale timer never fires against live state.
func (that *Session) CancelEviction() {
	if that.eviction != nil {
		that.eviction.Stop()
		that.eviction = nil
	}
}

// Reset - returns the session to idle with no room membership.
func (that *Session) Reset() {
	that.Status = SessionIdle
	that.RoomKey = ""
	that.Disk = ""
}

func (that *Session) IsIdle() bool {
	return that.Status == SessionIdle
}

package protocol

import (
	"encoding/json"

	"github.com/playgrid/reversi-backend/internal/entity"
)

// Inbound message kinds.
const (
	KindQueueJoin    = "queue-join"
	KindQueueCancel  = "queue-cancel"
	KindRoomCreate   = "room-create"
	KindRoomJoin     = "room-join"
	KindSpectateJoin = "spectate-join"
	KindMove         = "move"
	KindLeave        = "leave"
)

// Outbound message kinds.
const (
	KindSessionHello  = "session-hello"
	KindQueueStatus   = "queue-status"
	KindRoomWaiting   = "room-waiting"
	KindRoomStart     = "room-start"
	KindRoomUpdate    = "room-update"
	KindRoomEnd       = "room-end"
	KindSpectateOffer = "spectate-offer"
	KindProtocolError = "protocol-error"
)

// Roles carried by room-start.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// Reasons carried by room-end.
const (
	EndGameOver  = "game-over"
	EndForfeit   = "forfeit"
	EndTimeout   = "timeout"
	EndAbandoned = "abandoned"
)

// Message is the framed envelope every inbound and outbound message uses.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomJoinPayload struct {
	MatchKey string `json:"matchKey"`
}

type SpectateJoinPayload struct {
	MatchKey string `json:"matchKey"`
}

// MovePayload uses a pointer so a missing index can be told apart from
// a move on cell 0.
type MovePayload struct {
	Index *int `json:"index"`
}

type SessionHelloPayload struct {
	SessionID string `json:"sessionId"`
}

type QueueStatusPayload struct {
	Searching bool `json:"searching"`
}

type RoomWaitingPayload struct {
	MatchKey string `json:"matchKey"`
	YourDisk string `json:"yourDisk"`
}

type RoomStartPayload struct {
	Role     string           `json:"role"`
	YourDisk string           `json:"yourDisk,omitempty"`
	MatchKey string           `json:"matchKey"`
	State    *entity.Snapshot `json:"state"`
}

type RoomUpdatePayload struct {
	State *entity.Snapshot `json:"state"`
}

type RoomEndPayload struct {
	Reason string           `json:"reason"`
	State  *entity.Snapshot `json:"state"`
}

type SpectateOfferPayload struct {
	MatchKey string `json:"matchKey"`
}

type ProtocolErrorPayload struct {
	Message string `json:"message"`
}

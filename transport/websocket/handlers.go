package websocket

import (
	"encoding/json"

	"github.com/playgrid/reversi-backend/internal/protocol"
)

// dispatch - decodes one inbound envelope and routes it to the manager. Any
// failure, including a panic in handling, is answered on the offending
// connection only and never alters shared state.
func (that *Server) dispatch(c *client, data []byte) {
	log := that.logger.With("method", "dispatch", "sessionID", c.sessionID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic while handling message", "panic", r)
			that.sendError(c.sessionID, "internal error")
		}
	}()

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		that.sendError(c.sessionID, "malformed message")
		return
	}

	var err error

	switch msg.Type {
	case protocol.KindQueueJoin:
		err = that.manager.JoinQueue(c.sessionID)

	case protocol.KindQueueCancel:
		err = that.manager.CancelQueue(c.sessionID)

	case protocol.KindRoomCreate:
		err = that.manager.CreateRoom(c.sessionID)

	case protocol.KindRoomJoin:
		var payload protocol.RoomJoinPayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil || payload.MatchKey == "" {
			that.sendError(c.sessionID, "matchKey is required")
			return
		}
		err = that.manager.JoinRoom(c.sessionID, payload.MatchKey)

	case protocol.KindSpectateJoin:
		var payload protocol.SpectateJoinPayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil || payload.MatchKey == "" {
			that.sendError(c.sessionID, "matchKey is required")
			return
		}
		err = that.manager.Spectate(c.sessionID, payload.MatchKey)

	case protocol.KindMove:
		var payload protocol.MovePayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil || payload.Index == nil {
			that.sendError(c.sessionID, "index is required")
			return
		}
		err = that.manager.MakeMove(c.sessionID, *payload.Index)

	case protocol.KindLeave:
		err = that.manager.Leave(c.sessionID)

	default:
		that.sendError(c.sessionID, "unknown message type: "+msg.Type)
		return
	}

	if err != nil {
		log.Info("rejected message", "type", msg.Type, "error", err)
		that.sendError(c.sessionID, err.Error())
	}
}

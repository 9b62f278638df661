package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgrid/reversi-backend/internal/protocol"
	"github.com/playgrid/reversi-backend/internal/reversi"
	"github.com/playgrid/reversi-backend/internal/usecase"
)

func newTestServer(t *testing.T, grace time.Duration) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager := usecase.NewManager(logger, 30*time.Second, grace, nil)
	server := New(logger, manager)
	manager.SetNotifier(server)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func dial(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if sessionID != "" {
		url += "?session=" + sessionID
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = data
	}

	require.NoError(t, conn.WriteJSON(protocol.Message{Type: msgType, Payload: raw}))
}

// readUntil discards messages until one of the wanted type arrives, so tests
// stay insensitive to interleaved broadcasts.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	for {
		var msg protocol.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)

		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func readHello(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	var hello protocol.SessionHelloPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, protocol.KindSessionHello), &hello))
	require.NotEmpty(t, hello.SessionID)

	return hello.SessionID
}

func TestServer_SessionHello(t *testing.T) {
	ts := newTestServer(t, time.Second)

	t.Run("Greets a fresh connection with a session identifier", func(t *testing.T) {
		conn := dial(t, ts, "")

		sessionID := readHello(t, conn)
		assert.NotEmpty(t, sessionID)
	})

	t.Run("Hands back the presented identifier on reconnect", func(t *testing.T) {
		// Given: an established session
		first := dial(t, ts, "")
		sessionID := readHello(t, first)
		require.NoError(t, first.Close())

		// When: reconnecting with the identifier
		second := dial(t, ts, sessionID)

		// Then: the same session continues
		assert.Equal(t, sessionID, readHello(t, second))
	})
}

func TestServer_QueueFlow(t *testing.T) {
	ts := newTestServer(t, time.Second)

	// Given: two connected players
	first := dial(t, ts, "")
	readHello(t, first)
	second := dial(t, ts, "")
	readHello(t, second)

	// When: the first joins the queue
	send(t, first, protocol.KindQueueJoin, nil)

	// Then: it is acknowledged as searching
	var status protocol.QueueStatusPayload
	require.NoError(t, json.Unmarshal(readUntil(t, first, protocol.KindQueueStatus), &status))
	assert.True(t, status.Searching)

	// When: the second joins the queue
	send(t, second, protocol.KindQueueJoin, nil)

	// Then: both receive room-start with opposite disks
	var startFirst, startSecond protocol.RoomStartPayload
	require.NoError(t, json.Unmarshal(readUntil(t, first, protocol.KindRoomStart), &startFirst))
	require.NoError(t, json.Unmarshal(readUntil(t, second, protocol.KindRoomStart), &startSecond))

	assert.Equal(t, protocol.RolePlayer, startFirst.Role)
	assert.Equal(t, startFirst.MatchKey, startSecond.MatchKey)
	assert.Equal(t, reversi.OtherDisk(startFirst.YourDisk), startSecond.YourDisk)
	require.NotNil(t, startFirst.State)
	assert.Equal(t, reversi.DiskBlack, startFirst.State.ActiveDisk)
}

func TestServer_PrivateMatchFlow(t *testing.T) {
	ts := newTestServer(t, time.Second)

	creator := dial(t, ts, "")
	readHello(t, creator)

	// When: creating a private room
	send(t, creator, protocol.KindRoomCreate, nil)

	var waiting protocol.RoomWaitingPayload
	require.NoError(t, json.Unmarshal(readUntil(t, creator, protocol.KindRoomWaiting), &waiting))
	require.Len(t, waiting.MatchKey, 6)
	assert.Equal(t, reversi.DiskBlack, waiting.YourDisk)

	// When: an opponent joins by the shared key
	joiner := dial(t, ts, "")
	readHello(t, joiner)
	send(t, joiner, protocol.KindRoomJoin, protocol.RoomJoinPayload{MatchKey: waiting.MatchKey})

	var startCreator, startJoiner protocol.RoomStartPayload
	require.NoError(t, json.Unmarshal(readUntil(t, creator, protocol.KindRoomStart), &startCreator))
	require.NoError(t, json.Unmarshal(readUntil(t, joiner, protocol.KindRoomStart), &startJoiner))
	require.Equal(t, reversi.DiskBlack, startCreator.YourDisk)
	require.Equal(t, reversi.DiskWhite, startJoiner.YourDisk)

	// When: black plays an opening move
	index := 19
	send(t, creator, protocol.KindMove, protocol.MovePayload{Index: &index})

	// Then: both observe the identical updated snapshot
	var updateCreator, updateJoiner protocol.RoomUpdatePayload
	require.NoError(t, json.Unmarshal(readUntil(t, creator, protocol.KindRoomUpdate), &updateCreator))
	require.NoError(t, json.Unmarshal(readUntil(t, joiner, protocol.KindRoomUpdate), &updateJoiner))

	assert.Equal(t, updateCreator.State, updateJoiner.State)
	assert.Equal(t, 19, updateCreator.State.LastMove)
	assert.Equal(t, reversi.DiskWhite, updateCreator.State.ActiveDisk)

	// When: white leaves mid-game
	send(t, joiner, protocol.KindLeave, nil)

	// Then: the remaining player receives the terminal forfeit
	var end protocol.RoomEndPayload
	require.NoError(t, json.Unmarshal(readUntil(t, creator, protocol.KindRoomEnd), &end))
	assert.Equal(t, protocol.EndForfeit, end.Reason)
	assert.Equal(t, reversi.DiskBlack, end.State.Winner)
}

func TestServer_ProtocolErrors(t *testing.T) {
	ts := newTestServer(t, time.Second)

	readError := func(t *testing.T, conn *websocket.Conn) string {
		t.Helper()

		var payload protocol.ProtocolErrorPayload
		require.NoError(t, json.Unmarshal(readUntil(t, conn, protocol.KindProtocolError), &payload))

		return payload.Message
	}

	t.Run("Rejects a frame that is not a message envelope", func(t *testing.T) {
		conn := dial(t, ts, "")
		readHello(t, conn)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

		assert.Equal(t, "malformed message", readError(t, conn))
	})

	t.Run("Rejects an unknown message type", func(t *testing.T) {
		conn := dial(t, ts, "")
		readHello(t, conn)

		send(t, conn, "teleport", nil)

		assert.Contains(t, readError(t, conn), "unknown message type")
	})

	t.Run("Rejects a move without an index", func(t *testing.T) {
		conn := dial(t, ts, "")
		readHello(t, conn)

		send(t, conn, protocol.KindMove, struct{}{})

		assert.Equal(t, "index is required", readError(t, conn))
	})

	t.Run("Rejects a room join without a key", func(t *testing.T) {
		conn := dial(t, ts, "")
		readHello(t, conn)

		send(t, conn, protocol.KindRoomJoin, protocol.RoomJoinPayload{})

		assert.Equal(t, "matchKey is required", readError(t, conn))
	})

	t.Run("Reports a manager rejection on the offending connection", func(t *testing.T) {
		conn := dial(t, ts, "")
		readHello(t, conn)

		send(t, conn, protocol.KindRoomJoin, protocol.RoomJoinPayload{MatchKey: "NOSUCH"})

		assert.Contains(t, readError(t, conn), "unknown match key")
	})
}

func TestServer_ForcedRebind(t *testing.T) {
	grace := 50 * time.Millisecond
	ts := newTestServer(t, grace)

	// Given: a live connection
	first := dial(t, ts, "")
	sessionID := readHello(t, first)

	// When: a second connection binds the same session while the first is
	// still open
	second := dial(t, ts, sessionID)
	require.Equal(t, sessionID, readHello(t, second))

	// And: the displaced connection's teardown ran well past the grace period
	time.Sleep(4 * grace)

	// Then: the session is still alive on the new binding
	send(t, second, protocol.KindQueueJoin, nil)

	var status protocol.QueueStatusPayload
	require.NoError(t, json.Unmarshal(readUntil(t, second, protocol.KindQueueStatus), &status))
	assert.True(t, status.Searching)
}

func TestServer_SendAfterDrop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewManager(logger, 30*time.Second, time.Second, nil)
	server := New(logger, manager)
	manager.SetNotifier(server)

	// Given: a bound client whose write pump never drains
	c := newClient(server, nil, "session-1")
	server.bind(c)

	// When: broadcasts overrun the send buffer, dropping the client
	for i := 0; i < sendBufferSize+1; i++ {
		server.Send("session-1", protocol.KindRoomUpdate, protocol.RoomUpdatePayload{})
	}

	// Then: further sends to the dropped client are swallowed, never a panic
	assert.NotPanics(t, func() {
		server.Send("session-1", protocol.KindRoomUpdate, protocol.RoomUpdatePayload{})
	})
}

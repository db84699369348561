package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skene/collab-docs-backend/internal/core/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestServer exposes the hub behind a bare upgrade handler. Auth and access
// checks live in the HTTP adapter; here the identity comes from the query.
func newTestServer(t *testing.T, hub *Hub) (string, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		q := r.URL.Query()
		client := NewClient(hub, conn, q.Get("docId"), q.Get("userId"), q.Get("name"), testLogger())
		hub.Join(client)

		go client.WritePump()
		go client.ReadPump()
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return wsURL, server.Close
}

func dial(t *testing.T, wsURL, docID, userID, name string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"/?docId="+docID+"&userId="+userID+"&name="+name, nil)
	require.NoError(t, err, "client failed to connect")
	return conn
}

// readMessage reads one frame with a timeout so tests never hang.
func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read message")
	require.NoError(t, json.Unmarshal(p, &msg))
	return msg
}

// assertNoMessage asserts that nothing arrives within a short window.
func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, p, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, got: %s", p)
	}
}

func waitForClients(t *testing.T, hub *Hub, docID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientsInRoom(docID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d clients", docID, want)
}

func TestHub_UpdateBroadcastExcludesSender(t *testing.T) {
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	sender := dial(t, wsURL, "doc-1", "user-1", "Alice")
	defer sender.Close()
	peer := dial(t, wsURL, "doc-1", "user-2", "Bob")
	defer peer.Close()
	waitForClients(t, hub, "doc-1", 2)

	payload := `{"kind":"delta","content":{"ops":[{"retain":5},{"insert":"!"}]}}`
	raw, err := json.Marshal(Message{Type: MessageUpdate, Payload: json.RawMessage(payload)})
	require.NoError(t, err)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, raw))

	// The peer receives the delta with the server-stamped identity.
	got := readMessage(t, peer)
	assert.Equal(t, MessageUpdate, got.Type)
	assert.Equal(t, "doc-1", got.DocID)
	assert.Equal(t, "user-1", got.UserID)
	assert.JSONEq(t, payload, string(got.Payload))

	// The sender never sees its own update echoed back.
	assertNoMessage(t, sender)
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, mock.Anything).Return(nil, nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	sender := dial(t, wsURL, "doc-a", "user-1", "Alice")
	defer sender.Close()
	outsider := dial(t, wsURL, "doc-b", "user-2", "Bob")
	defer outsider.Close()
	waitForClients(t, hub, "doc-a", 1)
	waitForClients(t, hub, "doc-b", 1)

	payload := `{"kind":"delta","content":{"ops":[{"insert":"x"}]}}`
	raw, _ := json.Marshal(Message{Type: MessageUpdate, Payload: json.RawMessage(payload)})
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, raw))

	assertNoMessage(t, outsider)
}

func TestHub_LatecomerReceivesRetainedSnapshot(t *testing.T) {
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil)
	// The dirty snapshot flushes when the room empties at test teardown.
	snapshots.On("Save", mock.Anything, "doc-1", mock.Anything).Return(nil).Maybe()

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	editor := dial(t, wsURL, "doc-1", "user-1", "Alice")
	defer editor.Close()
	waitForClients(t, hub, "doc-1", 1)

	// Editor publishes a full-document snapshot.
	content := `{"ops":[{"insert":"Hello World"}]}`
	payload := `{"kind":"full-document","content":` + content + `}`
	raw, _ := json.Marshal(Message{Type: MessageUpdate, Payload: json.RawMessage(payload)})
	require.NoError(t, editor.WriteMessage(websocket.TextMessage, raw))
	waitForDirty(t, hub, "doc-1")

	// A latecomer immediately receives the retained snapshot.
	late := dial(t, wsURL, "doc-1", "user-2", "Bob")
	defer late.Close()

	got := readMessage(t, late)
	assert.Equal(t, MessageUpdate, got.Type)

	var update UpdatePayload
	require.NoError(t, json.Unmarshal(got.Payload, &update))
	assert.Equal(t, KindFullDocument, update.Kind)
	assert.JSONEq(t, content, string(update.Content))
}

func waitForDirty(t *testing.T, hub *Hub, docID string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		dirty := hub.dirty[docID]
		hub.mu.RUnlock()
		if dirty {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("snapshot for %s never retained", docID)
}

func TestHub_FirstJoinerSeedsSnapshotFromStorage(t *testing.T) {
	stored := []byte(`{"ops":[{"insert":"from storage"}]}`)
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(stored, nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	conn := dial(t, wsURL, "doc-1", "user-1", "Alice")
	defer conn.Close()

	got := readMessage(t, conn)
	assert.Equal(t, MessageUpdate, got.Type)

	var update UpdatePayload
	require.NoError(t, json.Unmarshal(got.Payload, &update))
	assert.Equal(t, KindFullDocument, update.Kind)
	assert.JSONEq(t, string(stored), string(update.Content))

	snapshots.AssertExpectations(t)
}

func TestHub_CursorRelayAndClearOnLeave(t *testing.T) {
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	mover := dial(t, wsURL, "doc-1", "user-1", "Alice")
	peer := dial(t, wsURL, "doc-1", "user-2", "Bob")
	defer peer.Close()
	waitForClients(t, hub, "doc-1", 2)

	// Cursor events are relayed verbatim to peers.
	cursor := `{"range":{"index":4,"length":2},"displayName":"Alice"}`
	raw, _ := json.Marshal(Message{Type: MessageCursor, Payload: json.RawMessage(cursor)})
	require.NoError(t, mover.WriteMessage(websocket.TextMessage, raw))

	got := readMessage(t, peer)
	assert.Equal(t, MessageCursor, got.Type)
	assert.Equal(t, "user-1", got.UserID)
	assert.JSONEq(t, cursor, string(got.Payload))

	// When the mover disconnects, peers get a nil-range cursor clear.
	mover.Close()

	clearMsg := readMessage(t, peer)
	assert.Equal(t, MessageCursor, clearMsg.Type)
	assert.Equal(t, "user-1", clearMsg.UserID)

	var payload CursorPayload
	require.NoError(t, json.Unmarshal(clearMsg.Payload, &payload))
	assert.Nil(t, payload.Range)
	assert.Equal(t, "Alice", payload.DisplayName)
}

func TestHub_MalformedUpdateRepliesToSenderOnly(t *testing.T) {
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	sender := dial(t, wsURL, "doc-1", "user-1", "Alice")
	defer sender.Close()
	peer := dial(t, wsURL, "doc-1", "user-2", "Bob")
	defer peer.Close()
	waitForClients(t, hub, "doc-1", 2)

	raw, _ := json.Marshal(Message{Type: MessageUpdate, Payload: json.RawMessage(`{"kind":"bogus"}`)})
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, raw))

	// Offender gets a local error notice.
	got := readMessage(t, sender)
	assert.Equal(t, MessageError, got.Type)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(got.Payload, &errPayload))
	assert.Equal(t, "INVALID_UPDATE", errPayload.Code)

	// Peers see nothing.
	assertNoMessage(t, peer)
}

func TestHub_EmptyRoomFlushesDirtySnapshot(t *testing.T) {
	saved := make(chan []byte, 1)
	snapshots := mocks.NewMockSnapshotRepository()
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil)
	snapshots.On("Save", mock.Anything, "doc-1", mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(2).([]byte) }).
		Return(nil)

	hub := NewHub(snapshots, testLogger())
	wsURL, closeServer := newTestServer(t, hub)
	defer closeServer()

	conn := dial(t, wsURL, "doc-1", "user-1", "Alice")
	waitForClients(t, hub, "doc-1", 1)

	content := `{"ops":[{"insert":"persist me"}]}`
	payload := `{"kind":"full-document","content":` + content + `}`
	raw, _ := json.Marshal(Message{Type: MessageUpdate, Payload: json.RawMessage(payload)})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
	waitForDirty(t, hub, "doc-1")

	conn.Close()

	select {
	case got := <-saved:
		assert.JSONEq(t, content, string(got))
	case <-time.After(time.Second):
		t.Fatal("dirty snapshot was not flushed when the room emptied")
	}

	// Room state is gone.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && hub.RoomCount() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.RoomCount())
}

// newLocalClient builds a client without a network connection, for tests that
// inspect the Send queue directly.
func newLocalClient(hub *Hub, docID, userID string) *Client {
	return &Client{
		Hub:    hub,
		Send:   make(chan []byte, 256),
		DocID:  docID,
		UserID: userID,
		logger: testLogger(),
	}
}

// decodeUpdateVersion extracts the {"v":N} counter from a full-document frame.
func decodeUpdateVersion(t *testing.T, data []byte) int {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, MessageUpdate, msg.Type)

	var update UpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &update))

	var content struct {
		V int `json:"v"`
	}
	require.NoError(t, json.Unmarshal(update.Content, &content))
	return content.V
}

func TestHub_JoinSnapshotPrecedesConcurrentUpdates(t *testing.T) {
	hub := NewHub(nil, testLogger())

	writer := newLocalClient(hub, "doc-1", "writer")
	hub.Join(writer)

	// A writer hammers full-document updates while clients keep joining.
	// Every joiner's frame sequence must start at its catch-up snapshot and
	// never step backwards to older content.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := 0; ; v++ {
			select {
			case <-stop:
				return
			default:
			}
			payload := fmt.Sprintf(`{"kind":"full-document","content":{"v":%d}}`, v)
			hub.HandleUpdate(writer, json.RawMessage(payload))
		}
	}()

	for i := 0; i < 50; i++ {
		joiner := newLocalClient(hub, "doc-1", fmt.Sprintf("user-%d", i))
		hub.Join(joiner)

		last := -1
	drain:
		for {
			select {
			case data := <-joiner.Send:
				v := decodeUpdateVersion(t, data)
				require.GreaterOrEqual(t, v, last,
					"joiner observed content older than an earlier frame")
				last = v
			default:
				break drain
			}
		}
		require.NotEqual(t, -1, last, "joiner received no catch-up snapshot")

		hub.Leave(joiner)
	}

	close(stop)
	wg.Wait()
}

func TestHub_RejoinDuringFlushKeepsRetainedSnapshot(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	snapshots := mocks.NewMockSnapshotRepository()
	// Storage is only consulted for the very first join; the retained
	// snapshot must survive until its flush lands.
	snapshots.On("LoadLatest", mock.Anything, "doc-1").Return(nil, nil).Once()
	snapshots.On("Save", mock.Anything, "doc-1", mock.Anything).
		Run(func(mock.Arguments) {
			entered <- struct{}{}
			<-release
		}).
		Return(nil)

	hub := NewHub(snapshots, testLogger())

	first := newLocalClient(hub, "doc-1", "user-1")
	hub.Join(first)

	content := `{"v":42}`
	hub.HandleUpdate(first, json.RawMessage(`{"kind":"full-document","content":`+content+`}`))

	done := make(chan struct{})
	go func() {
		hub.Leave(first)
		close(done)
	}()
	<-entered // the flush is now in flight

	// A rejoin mid-flush gets the retained snapshot, not stale storage.
	rejoiner := newLocalClient(hub, "doc-1", "user-2")
	hub.Join(rejoiner)

	select {
	case data := <-rejoiner.Send:
		assert.Equal(t, 42, decodeUpdateVersion(t, data))
	default:
		t.Fatal("rejoiner received no catch-up snapshot")
	}

	close(release)
	<-done

	snapshots.AssertExpectations(t)
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub(nil, testLogger())

	client := &Client{
		Hub:    hub,
		Send:   make(chan []byte, 8),
		DocID:  "doc-1",
		UserID: "user-1",
		logger: testLogger(),
	}

	hub.Join(client)
	hub.Join(client)

	assert.Equal(t, 1, hub.ClientsInRoom("doc-1"))
}

package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/page"
	"github.com/eyedraw/eyedraw/internal/shapes"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

func widgets() []controller.Properties {
	ready := []engine.Command{{Method: "addDoodle", Args: []any{"AntSeg"}}}
	sync := func(target string) syncer.Table {
		return syncer.Table{target: {"AntSeg": {"AntSeg": {Parameters: []string{"pxe"}}}}}
	}
	return []controller.Properties{
		{DrawingName: "ed_right", IDSuffix: "right", Eye: "Right", IsEditable: true, OnReadyCommands: ready, SyncArray: sync("left")},
		{DrawingName: "ed_left", IDSuffix: "left", Eye: "Left", IsEditable: true, OnReadyCommands: ready, SyncArray: sync("right")},
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	reg := page.NewRegistry(ctx, page.RegistryConfig{
		Widgets: widgets(),
		Catalog: shapes.Catalog(),
		Delay:   time.Hour,
		Logger:  discard,
	})
	hub := NewHub(reg)
	go hub.Run()

	identify := func(r *http.Request, pageID string) (Identity, error) {
		name := r.URL.Query().Get("name")
		if name == "" {
			return Identity{}, errors.New("missing name")
		}
		return Identity{UserID: "user_" + name, DisplayName: name}, nil
	}
	r := mux.NewRouter()
	r.HandleFunc("/ws/page/{pageId}", hub.ServeWS(identify, nil))
	srv := httptest.NewServer(r)

	t.Cleanup(srv.Close)
	t.Cleanup(func() { hub.Stop(ctx) })
	return srv
}

func dial(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/page/page_1?name=" + name
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil returns the first message of type typ and the types skipped on
// the way.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) (Message, []string) {
	t.Helper()
	var skipped []string
	for {
		msg := read(t, conn)
		if msg.Type == typ {
			return msg, skipped
		}
		skipped = append(skipped, msg.Type)
	}
}

func submit(t *testing.T, conn *websocket.Conn, op Operation) {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	require.NoError(t, err)
	data, err := json.Marshal(Message{Type: TypeOpSubmit, Payload: payload})
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

func TestJoinReceivesPageState(t *testing.T) {
	srv := newServer(t)
	conn := dial(t, srv, "alice")

	welcome := read(t, conn)
	require.Equal(t, TypeWelcome, welcome.Type)
	var w WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.Equal(t, "user_alice", w.UserID)
	assert.NotEmpty(t, w.ClientID)

	stateMsg := read(t, conn)
	require.Equal(t, TypePageState, stateMsg.Type)
	var state PageStatePayload
	require.NoError(t, json.Unmarshal(stateMsg.Payload, &state))
	require.Len(t, state.Drawings, 2)
	assert.Equal(t, "ed_right", state.Drawings[0].Name)
	assert.Equal(t, "Left", state.Drawings[1].Eye)
	assert.Contains(t, string(state.Drawings[0].Document), `"subclass":"AntSeg"`)
	assert.Zero(t, state.Readiness.Pending)

	assert.Equal(t, TypePresenceState, read(t, conn).Type)
}

func TestOperationsBroadcastAndAck(t *testing.T) {
	srv := newServer(t)
	alice := dial(t, srv, "alice")
	readUntil(t, alice, TypePresenceState)
	bob := dial(t, srv, "bob")
	readUntil(t, bob, TypePresenceState)

	join, _ := readUntil(t, alice, TypePresenceJoin)
	assert.Equal(t, "user_bob", join.UserID)

	submit(t, alice, Operation{ID: "op1", Type: OpSetParameter, Drawing: "ed_right", Class: "AntSeg", Parameter: "pxe", Value: "true"})
	ackMsg, skipped := readUntil(t, alice, TypeOpAck)
	assert.Equal(t, []string{page.ChangeParameter, page.ChangeParameter}, skipped, "the change and its synced copy")
	var ack OperationAckPayload
	require.NoError(t, json.Unmarshal(ackMsg.Payload, &ack))
	assert.Equal(t, "op1", ack.OperationID)
	assert.GreaterOrEqual(t, ack.ServerSeq, int64(2))

	changed := read(t, bob)
	require.Equal(t, page.ChangeParameter, changed.Type)
	var c page.Change
	require.NoError(t, json.Unmarshal(changed.Payload, &c))
	assert.Equal(t, "pxe", c.Parameter)
	assert.Equal(t, true, c.Value)

	submit(t, alice, Operation{ID: "op2", Type: OpAddDoodle, Drawing: "ed_nowhere", Class: "AntSeg"})
	nackMsg, _ := readUntil(t, alice, TypeOpNack)
	var nack OperationNackPayload
	require.NoError(t, json.Unmarshal(nackMsg.Payload, &nack))
	assert.Equal(t, "op2", nack.OperationID)
	assert.Contains(t, nack.Reason, "ed_nowhere")
}

func TestUnidentifiedRejected(t *testing.T) {
	srv := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/page/page_1"
	_, resp, err := websocket.Dial(context.Background(), url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

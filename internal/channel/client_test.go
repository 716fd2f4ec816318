package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
	"github.com/dimitrmo/phirepass-widgets/internal/session"
)

type recorder struct {
	opens  chan struct{}
	closes chan string
	errs   chan error
	msgs   chan protocol.Message
}

func newRecorder() *recorder {
	return &recorder{
		opens:  make(chan struct{}, 4),
		closes: make(chan string, 4),
		errs:   make(chan error, 4),
		msgs:   make(chan protocol.Message, 16),
	}
}

func (r *recorder) OnOpen()                        { r.opens <- struct{}{} }
func (r *recorder) OnClose(reason string)          { r.closes <- reason }
func (r *recorder) OnError(err error)              { r.errs <- err }
func (r *recorder) OnMessage(msg protocol.Message) { r.msgs <- msg }

type frame struct {
	kind int
	msg  protocol.Message
}

type testServer struct {
	*httptest.Server
	frames chan frame
}

// newTestServer accepts websocket clients, runs script against each, then
// decodes everything the client sends into frames.
func newTestServer(t *testing.T, script func(conn *websocket.Conn)) *testServer {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := &testServer{frames: make(chan frame, 32)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if script != nil {
			script(conn)
		}
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			enc := protocol.EncodingMessagePack
			if kind == websocket.TextMessage {
				enc = protocol.EncodingJSON
			}
			msg, err := protocol.Decode(enc, data)
			if err != nil {
				continue
			}
			ts.frames <- frame{kind: kind, msg: msg}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/web/ws"
}

func (ts *testServer) next(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-ts.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame from client")
		return frame{}
	}
}

// writeMsg runs on the server goroutine, so it reports with Errorf.
func writeMsg(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, web protocol.Web) {
	t.Helper()
	raw, err := protocol.Encode(protocol.NewMessage(enc, web))
	if err != nil {
		t.Errorf("encode %s: %v", web.Type(), err)
		return
	}
	kind := websocket.BinaryMessage
	if enc == protocol.EncodingJSON {
		kind = websocket.TextMessage
	}
	if err := conn.WriteMessage(kind, raw); err != nil {
		t.Errorf("write %s: %v", web.Type(), err)
	}
}

func waitMsg(t *testing.T, r *recorder) protocol.Message {
	t.Helper()
	select {
	case msg := <-r.msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no message delivered")
		return protocol.Message{}
	}
}

func TestClientDeliversMessagesAndClose(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(conn *websocket.Conn) {
		writeMsg(t, conn, protocol.EncodingMessagePack, protocol.TunnelOpened{SID: 7})
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"version":1,"encoding":"JSON","data":{"web":{"type":"NodeStats"}}}`))
		writeMsg(t, conn, protocol.EncodingJSON, protocol.TunnelData{NodeID: "node-1", SID: 7, Data: protocol.Bytes("hi")})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	rec := newRecorder()
	c := New(ts.wsURL(), rec)
	require.NoError(t, c.Connect(context.Background()))
	<-rec.opens

	require.Equal(t, protocol.TunnelOpened{SID: 7}, waitMsg(t, rec).Web)
	require.Equal(t, protocol.TunnelData{NodeID: "node-1", SID: 7, Data: protocol.Bytes("hi")}, waitMsg(t, rec).Web)

	select {
	case reason := <-rec.closes:
		require.Equal(t, "bye", reason)
	case <-time.After(2 * time.Second):
		t.Fatalf("OnClose not raised")
	}
	require.Empty(t, rec.errs)
	require.Empty(t, rec.msgs)
	require.False(t, c.IsConnected())
}

func TestClientReportsAbnormalClose(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(conn *websocket.Conn) {
		_ = conn.UnderlyingConn().Close()
	})

	rec := newRecorder()
	c := New(ts.wsURL(), rec)
	require.NoError(t, c.Connect(context.Background()))

	select {
	case err := <-rec.errs:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("OnError not raised")
	}
	select {
	case <-rec.closes:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnClose not raised")
	}
	require.Empty(t, rec.closes)
}

func TestClientOutboundFrames(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	c := New(ts.wsURL(), newRecorder(), WithEncoding(protocol.EncodingJSON))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	require.NoError(t, c.OpenTunnel("node-1", session.Credentials{Username: "alice", Password: "secret"}))
	require.NoError(t, c.SendTunnelData("node-1", 7, []byte("ls\r")))
	require.NoError(t, c.SendResize("node-1", 7, 100, 30))

	f := ts.next(t)
	require.Equal(t, websocket.TextMessage, f.kind)
	require.Equal(t, protocol.Version, f.msg.Version)
	require.Equal(t, protocol.OpenTunnel{
		Protocol: protocol.TunnelSSH,
		NodeID:   "node-1",
		Username: "alice",
		Password: "secret",
	}, f.msg.Web)

	require.Equal(t, protocol.TunnelData{NodeID: "node-1", SID: 7, Data: protocol.Bytes("ls\r")}, ts.next(t).msg.Web)
	require.Equal(t, protocol.Resize{NodeID: "node-1", SID: 7, Cols: 100, Rows: 30}, ts.next(t).msg.Web)

	require.Error(t, c.SendResize("node-1", 7, 0, 30))
}

func TestClientHeartbeat(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	c := New(ts.wsURL(), newRecorder())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	c.StartHeartbeat(time.Hour)
	c.StartHeartbeat(10 * time.Millisecond)
	for i := 0; i < 2; i++ {
		f := ts.next(t)
		require.Equal(t, websocket.BinaryMessage, f.kind)
		require.Equal(t, protocol.Heartbeat{}, f.msg.Web)
	}
	c.StopHeartbeat()
	c.StopHeartbeat()
}

func TestClientDisconnect(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := newRecorder()
	c := New(ts.wsURL(), rec)

	require.ErrorIs(t, c.OpenTunnel("node-1", session.Credentials{}), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	require.True(t, c.IsConnected())
	require.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)

	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
	require.False(t, c.IsConnected())
	require.ErrorIs(t, c.SendTunnelData("node-1", 1, []byte("x")), ErrNotConnected)
	require.ErrorIs(t, c.Connect(context.Background()), ErrClosed)

	select {
	case reason := <-rec.closes:
		t.Fatalf("OnClose raised after Disconnect: %q", reason)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientDialFailure(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	url := ts.wsURL()
	ts.Close()

	rec := newRecorder()
	c := New(url, rec, WithHandshakeTimeout(time.Second))
	require.Error(t, c.Connect(context.Background()))
	require.Empty(t, rec.opens)
	require.False(t, c.IsConnected())
}

func TestFactoryBuildsClients(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	factory := Factory(ts.wsURL(), WithEncoding(protocol.EncodingJSON))

	rec := newRecorder()
	tr, err := factory("node-1", rec)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	require.NoError(t, tr.SendResize("node-1", 3, 80, 24))
	f := ts.next(t)
	require.Equal(t, websocket.TextMessage, f.kind)
	require.Equal(t, protocol.Resize{NodeID: "node-1", SID: 3, Cols: 80, Rows: 24}, f.msg.Web)
}

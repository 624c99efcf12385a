package session_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurchat/transport/internal/session"
	"github.com/murmurchat/transport/internal/transport"
	"github.com/murmurchat/transport/pkg/wire"
)

// pipeServer plays the server side of the duplex session: it accepts one
// websocket connection, pushes request envelopes down it and records what
// comes back.
type pipeServer struct {
	*httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	received [][]byte
	ready    chan struct{}
}

func newPipeServer(t *testing.T) *pipeServer {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	ps := &pipeServer{ready: make(chan struct{})}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conn = conn
		ps.mu.Unlock()
		close(ps.ready)

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.BinaryMessage {
				ps.mu.Lock()
				ps.received = append(ps.received, data)
				ps.mu.Unlock()
			}
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pipeServer) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-ps.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
}

func (ps *pipeServer) pushRequest(t *testing.T, req *wire.RequestMessage) {
	t.Helper()
	data, err := wire.NewRequestEnvelope(req).Encode()
	require.NoError(t, err)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.NoError(t, ps.conn.WriteMessage(websocket.BinaryMessage, data))
}

func (ps *pipeServer) receivedFrames() [][]byte {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([][]byte(nil), ps.received...)
}

func newPipeSession(t *testing.T, ps *pipeServer) *session.Session {
	t.Helper()
	factory := transport.NewWebSocketFactory(
		ps.URL,
		transport.StaticCredentials{User: "alice", Pass: "s3cret"},
		nil,
		5*time.Second,
		0,
	)
	s := session.New(session.Config{Factory: factory, KeepaliveInterval: time.Hour})
	t.Cleanup(s.Disconnect)
	return s
}

func TestSession_EndToEnd(t *testing.T) {
	ps := newPipeServer(t)
	s := newPipeSession(t, ps)

	s.Connect()
	ps.waitReady(t)

	ps.pushRequest(t, &wire.RequestMessage{ID: 1, Verb: "PUT", Path: "/v1/messages", Body: []byte("ciphertext")})

	req, err := s.ReadRequest(5*time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), req.ID)
	assert.Equal(t, "PUT", req.Verb)
	assert.Equal(t, "/v1/messages", req.Path)
	assert.Equal(t, []byte("ciphertext"), req.Body)

	require.NoError(t, s.SendResponse(&wire.ResponseMessage{ID: 1, Status: 200, Message: "OK"}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(ps.receivedFrames()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	frames := ps.receivedFrames()
	require.NotEmpty(t, frames, "server never saw the response")

	var env wire.Envelope
	require.NoError(t, env.Decode(frames[0]))
	assert.Equal(t, wire.EnvelopeTypeResponse, env.Type)
	assert.Equal(t, uint64(1), env.Response.ID)
	assert.Equal(t, uint32(200), env.Response.Status)
}

func TestSession_EndToEnd_RemoteClose(t *testing.T) {
	ps := newPipeServer(t)
	s := newPipeSession(t, ps)

	s.Connect()
	ps.waitReady(t)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReadRequest(10*time.Second, nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	ps.mu.Lock()
	ps.conn.Close()
	ps.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, session.ErrConnectionClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("blocked read did not observe the remote close")
	}
}

func TestSession_EndToEnd_Keepalive(t *testing.T) {
	ps := newPipeServer(t)
	factory := transport.NewWebSocketFactory(
		ps.URL,
		transport.StaticCredentials{User: "alice", Pass: "s3cret"},
		nil,
		5*time.Second,
		0,
	)
	s := session.New(session.Config{Factory: factory, KeepaliveInterval: 50 * time.Millisecond})
	t.Cleanup(s.Disconnect)

	s.Connect()
	ps.waitReady(t)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(ps.receivedFrames()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	frames := ps.receivedFrames()
	require.NotEmpty(t, frames, "no heartbeat reached the server")

	var env wire.Envelope
	require.NoError(t, env.Decode(frames[0]))
	assert.Equal(t, wire.EnvelopeTypeRequest, env.Type)
	assert.Equal(t, "GET", env.Request.Verb)
	assert.Equal(t, "/v1/keepalive", env.Request.Path)
}

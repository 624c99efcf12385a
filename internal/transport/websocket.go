package transport

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const closeGracePeriod = time.Second

// WebSocketFactory opens websocket transports to a fixed session endpoint.
type WebSocketFactory struct {
	uri            string
	tlsConfig      *tls.Config
	connectTimeout time.Duration
	readTimeout    time.Duration
	logger         zerolog.Logger
}

// NewWebSocketFactory binds a factory to the session endpoint derived from
// baseURI and creds. connectTimeout bounds the dial and handshake;
// readTimeout bounds the idle time between inbound frames (0 disables it).
func NewWebSocketFactory(baseURI string, creds CredentialsProvider, tlsConfig *tls.Config, connectTimeout, readTimeout time.Duration) *WebSocketFactory {
	return &WebSocketFactory{
		uri:            SessionURL(baseURI, creds),
		tlsConfig:      tlsConfig,
		connectTimeout: connectTimeout,
		readTimeout:    readTimeout,
		logger:         log.With().Str("component", "transport").Logger(),
	}
}

// Open starts connecting and returns the transport immediately. The
// listener hears OnOpen on success, or OnClose if the dial fails.
func (f *WebSocketFactory) Open(l Listener) Transport {
	t := &webSocketTransport{
		uri:         f.uri,
		readTimeout: f.readTimeout,
		listener:    l,
		logger:      f.logger,
		dialer: &websocket.Dialer{
			TLSClientConfig:  f.tlsConfig,
			HandshakeTimeout: f.connectTimeout,
		},
	}
	go t.run()
	return t
}

type webSocketTransport struct {
	uri         string
	readTimeout time.Duration
	listener    Listener
	dialer      *websocket.Dialer
	logger      zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (t *webSocketTransport) run() {
	conn, _, err := t.dialer.Dial(t.uri, nil)
	if err != nil {
		t.logger.Warn().Err(err).Msg("dial failed")
		t.listener.OnClose()
		return
	}

	t.mu.Lock()
	if t.closed {
		// Close raced the dial; drop the connection quietly.
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.listener.OnOpen()
	t.readLoop(conn)
}

func (t *webSocketTransport) readLoop(conn *websocket.Conn) {
	defer func() {
		t.mu.Lock()
		t.closed = true
		t.conn = nil
		t.mu.Unlock()
		conn.Close()
		t.listener.OnClose()
	}()

	for {
		if t.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
				return
			}
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			t.listener.OnPayload(data)
		}
	}
}

// Send writes one binary frame. Sends are serialized; the read loop owns
// the connection's reader side independently.
func (t *webSocketTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close tears the connection down. The read loop observes the closed
// connection and reports OnClose to the listener.
func (t *webSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(closeGracePeriod)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

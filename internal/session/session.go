// Package session maintains the single persistent duplex connection to the
// server. It multiplexes server-initiated requests and client-initiated
// responses over one transport, queues inbound requests for a consumer
// polling with a deadline, and keeps the connection alive with periodic
// heartbeats.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/murmurchat/transport/internal/transport"
	"github.com/murmurchat/transport/pkg/wire"
)

var (
	// ErrConnectionClosed reports an operation against a session with no
	// active transport.
	ErrConnectionClosed = errors.New("session: connection closed")

	// ErrTimeout reports a ReadRequest deadline that elapsed with no
	// request available.
	ErrTimeout = errors.New("session: read timed out")
)

// ReadCallback is notified immediately before and after ReadRequest blocks,
// and only while a keepalive task is maintaining the connection. A caller
// can use it to tell an external supervisor the consumer is idle.
type ReadCallback interface {
	Sleep()
	Wakeup()
}

// Config carries the session's construction parameters.
type Config struct {
	// Factory opens the underlying transport on each Connect.
	Factory transport.Factory

	// KeepaliveInterval is the heartbeat period. Zero means
	// DefaultKeepaliveInterval.
	KeepaliveInterval time.Duration
}

// Session is the single logical connection and its lifecycle state. All
// state lives behind one mutex; the consumer, the transport callbacks and
// the keepalive task rendezvous there and nowhere else.
type Session struct {
	factory           transport.Factory
	keepaliveInterval time.Duration
	logger            zerolog.Logger

	mu        sync.Mutex
	wake      chan struct{} // closed and replaced on every broadcast
	transport transport.Transport
	keepalive *keepaliveSender
	queue     []*wire.RequestMessage
}

// New creates a disconnected session.
func New(cfg Config) *Session {
	interval := cfg.KeepaliveInterval
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	return &Session{
		factory:           cfg.Factory,
		keepaliveInterval: interval,
		logger:            log.With().Str("component", "session").Logger(),
		wake:              make(chan struct{}),
	}
}

// Connect acquires a transport and initiates its open sequence, returning
// immediately; establishment completes asynchronously via OnOpen. A no-op
// if the session already holds a transport.
func (s *Session) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return
	}
	s.logger.Debug().Msg("connecting")
	s.transport = s.factory.Open(s)
}

// Disconnect tears down the transport and keepalive task and wakes all
// waiters. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().Msg("disconnecting")
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.transport == nil && s.keepalive == nil {
		return
	}
	if s.transport != nil {
		_ = s.transport.Close()
		s.transport = nil
	}
	if s.keepalive != nil {
		s.keepalive.stop()
		s.keepalive = nil
	}
	s.broadcastLocked()
}

// broadcastLocked wakes every blocked ReadRequest. Waiters re-check the
// full predicate, so over-waking is harmless.
func (s *Session) broadcastLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// OnOpen is invoked by the transport once the connection is established.
// It starts the keepalive task if this session still owns the transport
// that opened and none is running yet.
func (s *Session) OnOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil || s.keepalive != nil {
		return
	}
	s.logger.Debug().Msg("connected")
	s.keepalive = startKeepalive(s, s.keepaliveInterval)
	s.broadcastLocked()
}

// OnPayload is invoked by the transport for each inbound frame. Request
// envelopes are queued and waiters signaled; response and unrecognized
// envelopes are dropped, as are frames that fail to decode.
func (s *Session) OnPayload(data []byte) {
	var env wire.Envelope
	if err := env.Decode(data); err != nil {
		s.logger.Warn().Err(err).Msg("dropping undecodable frame")
		return
	}
	if env.Type != wire.EnvelopeTypeRequest {
		s.logger.Debug().Stringer("type", env.Type).Msg("ignoring non-request envelope")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, env.Request)
	s.broadcastLocked()
}

// OnClose is invoked by the transport when the connection terminates,
// remotely or otherwise. Reconnection is left to a higher layer.
func (s *Session) OnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().Msg("transport closed")
	s.teardownLocked()
}

// ReadRequest blocks until a request is available, the timeout elapses, or
// the session closes, and returns the oldest queued request (FIFO).
// Requests that arrived before a disconnect are still drained; only an
// empty queue reports ErrConnectionClosed. cb may be nil.
func (s *Session) ReadRequest(timeout time.Duration, cb ReadCallback) (*wire.RequestMessage, error) {
	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && s.transport != nil && time.Until(deadline) > 0 {
		wake := s.wake
		keepaliveRunning := s.keepalive != nil

		s.mu.Unlock()
		await(wake, timer.C, keepaliveRunning, cb)
		s.mu.Lock()
	}

	switch {
	case len(s.queue) > 0:
		req := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		return req, nil
	case s.transport == nil:
		return nil, ErrConnectionClosed
	default:
		return nil, ErrTimeout
	}
}

// await blocks until a broadcast or the deadline. Wakeup is guaranteed to
// fire whenever Sleep fired, however the wait ends.
func await(wake <-chan struct{}, deadline <-chan time.Time, keepaliveRunning bool, cb ReadCallback) {
	if keepaliveRunning && cb != nil {
		cb.Sleep()
		defer cb.Wakeup()
	}
	select {
	case <-wake:
	case <-deadline:
	}
}

// SendResponse encodes resp in a response envelope and writes it through
// the transport. Fails with ErrConnectionClosed when disconnected; does not
// wait for any acknowledgement.
func (s *Session) SendResponse(resp *wire.ResponseMessage) error {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()

	if t == nil {
		return ErrConnectionClosed
	}

	data, err := wire.NewResponseEnvelope(resp).Encode()
	if err != nil {
		return fmt.Errorf("session: encode response: %w", err)
	}
	if err := t.Send(data); err != nil {
		return fmt.Errorf("session: send response: %w", err)
	}
	return nil
}

// sendKeepalive emits one synthetic heartbeat request. It is a no-op once
// the keepalive task has been stopped.
func (s *Session) sendKeepalive() error {
	s.mu.Lock()
	t := s.transport
	running := s.keepalive != nil
	s.mu.Unlock()

	if !running || t == nil {
		return nil
	}

	data, err := wire.NewRequestEnvelope(&wire.RequestMessage{
		ID:   uint64(time.Now().UnixMilli()),
		Verb: "GET",
		Path: keepalivePath,
	}).Encode()
	if err != nil {
		return fmt.Errorf("session: encode keepalive: %w", err)
	}
	return t.Send(data)
}

// Package transport provides the encrypted duplex connection underneath a
// session. It delivers inbound payloads and lifecycle events through a
// Listener and accepts outbound payloads through Transport; everything
// above it deals in whole binary frames.
package transport

import "errors"

// ErrNotConnected is returned by Send when the connection is not open.
var ErrNotConnected = errors.New("transport: not connected")

// Listener receives connection events. Callbacks are invoked from the
// transport's own goroutine; implementations must be safe to call
// concurrently with Send and Close.
type Listener interface {
	// OnOpen is invoked once when the connection is established.
	OnOpen()

	// OnPayload is invoked for each inbound binary frame.
	OnPayload(data []byte)

	// OnClose is invoked when the connection terminates for any reason,
	// including a failed open.
	OnClose()
}

// Transport is an open (or opening) duplex connection.
type Transport interface {
	// Send writes a single binary frame.
	Send(data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Factory creates transports bound to a fixed endpoint and credential set.
// Open returns immediately; connection establishment completes
// asynchronously through the listener.
type Factory interface {
	Open(l Listener) Transport
}

// CredentialsProvider supplies the login material embedded in the
// connection URI.
type CredentialsProvider interface {
	Login() string
	Password() string
}

// StaticCredentials is a CredentialsProvider with fixed values.
type StaticCredentials struct {
	User string
	Pass string
}

func (c StaticCredentials) Login() string    { return c.User }
func (c StaticCredentials) Password() string { return c.Pass }

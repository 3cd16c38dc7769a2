// Package session implements the per-connection lifecycle manager: the
// Reader, Writer, and Heartbeat watchdog that together own one WebSocket
// connection from upgrade to close.
package session

import "time"

// Conn is the thin transport seam a Session drives. The http transport's
// wsConn adapts *websocket.Conn to it; tests supply an in-memory fake so
// the state machine can be exercised without a real socket.
type Conn interface {
	// ReadBinary blocks for the next binary frame. ok is false for text
	// frames (ignored) and non-binary control frames, which the
	// transport already handled; err is returned for read failures
	// including close.
	ReadBinary() (data []byte, ok bool, err error)
	WriteBinary(data []byte) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	// Close sends a WebSocket Close control frame carrying code and
	// reason (best-effort, never blocking long) before tearing down the
	// underlying transport.
	Close(code int, reason string) error
}

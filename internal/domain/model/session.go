package model

import "time"

// SessionState is the lifecycle state of a Session.
type SessionState int32

const (
	// StatePending is the initial state: upgraded, awaiting REGISTER.
	StatePending SessionState = iota
	// StateActive means REGISTER was received and acknowledged.
	StateActive
	// StateSuperseded means a newer session for the same user replaced
	// this one; draining best-effort before Closed.
	StateSuperseded
	// StateClosed is terminal. It is set as soon as a close begins for any
	// reason other than supersession, before the sub-tasks have joined,
	// the socket is closed, or the registry and directory are cleaned up;
	// it is set again once all of that has finished.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a session was closed, for logging and for the
// WebSocket close code chosen by the writer on teardown.
type CloseReason int32

const (
	ReasonUnspecified CloseReason = iota
	ReasonPolicyViolation
	ReasonSlowConsumer
	ReasonGoingAway
	ReasonSuperseded
	ReasonShutdown
	ReasonHandshakeTimeout
)

// CloseCode returns the WebSocket close code (RFC 6455 §7.4) the
// transport should send in its Close control frame for this reason,
// matching the error-kind/disposition table: PolicyViolation for
// protocol violations and the superseded-by-a-newer-login case,
// InternalError for a server-side queue overflow (not the client's
// fault), GoingAway for a lost peer, a missed heartbeat, or the server
// itself shutting down.
func (r CloseReason) CloseCode() int {
	switch r {
	case ReasonPolicyViolation, ReasonSuperseded, ReasonHandshakeTimeout:
		return 1008
	case ReasonSlowConsumer:
		return 1011
	case ReasonGoingAway, ReasonShutdown:
		return 1001
	default:
		return 1000
	}
}

func (r CloseReason) String() string {
	switch r {
	case ReasonPolicyViolation:
		return "policy_violation"
	case ReasonSlowConsumer:
		return "slow_consumer"
	case ReasonGoingAway:
		return "going_away"
	case ReasonSuperseded:
		return "superseded"
	case ReasonShutdown:
		return "shutdown"
	case ReasonHandshakeTimeout:
		return "handshake_timeout"
	default:
		return "unspecified"
	}
}

// Snapshot is the read-only view of a session the registry and the stats
// surface expose; it never carries the socket.
type Snapshot struct {
	SessionID      string
	UserID         string
	RemoteAddr     string
	ConnectedAt    time.Time
	LastActivityAt time.Time
	State          SessionState
}

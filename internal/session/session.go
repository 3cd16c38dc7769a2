package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
)

// Registry is the subset of *registry.Registry a Session needs. Defined
// here so tests can supply a fake instead of a real sharded map.
type Registry interface {
	Insert(userID string, handle registry.Handle) (previous registry.Handle, hadPrevious bool)
	RemoveIf(userID, sessionID string)
}

// BrokerID identifies this node in the routing directory. A distinct type
// rather than a bare string so the dependency graph can resolve it
// unambiguously alongside other string-shaped values.
type BrokerID string

// Factory builds Sessions that share a Registry, a DirectoryClient, this
// node's broker id, and a set of Options.
type Factory struct {
	registry  Registry
	directory DirectoryClient
	brokerID  BrokerID
	opts      Options
	log       *slog.Logger
}

// NewFactory creates a Factory. A nil logger falls back to slog.Default.
func NewFactory(reg *registry.Registry, dir DirectoryClient, brokerID BrokerID, opts Options, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{
		registry:  reg,
		directory: dir,
		brokerID:  brokerID,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// New builds a Session for an already-authenticated, already-upgraded
// connection. userID comes from the Authenticator, not from the client;
// the session still requires an explicit REGISTER frame before it leaves
// Pending.
func (f *Factory) New(id, userID string, conn Conn) *Session {
	s := &Session{
		id:          id,
		userID:      userID,
		brokerID:    f.brokerID,
		conn:        conn,
		registry:    f.registry,
		directory:   f.directory,
		opts:        f.opts,
		log:         f.log.With("session_id", id, "user_id", userID),
		outbound:    make(chan []byte, f.opts.QueueCapacity),
		connectedAt: time.Now(),
	}
	s.handle = &handle{s: s}
	s.lastActivityAt.Store(s.connectedAt.UnixNano())
	return s
}

// Session owns one WebSocket connection for its entire lifetime: the
// Reader, Writer, and Heartbeat watchdog goroutines, and the Pending ->
// Active -> Superseded | Closed state machine.
type Session struct {
	id       string
	userID   string
	brokerID BrokerID

	conn      Conn
	registry  Registry
	directory DirectoryClient
	opts      Options
	log       *slog.Logger

	connectedAt    time.Time
	lastActivityAt atomic.Int64 // unix nanos, touched on every inbound frame
	state          atomic.Int32

	outbound chan []byte
	handle   *handle

	cancel        context.CancelFunc
	closeOnce     sync.Once
	connCloseOnce sync.Once
	reasonMu      sync.Mutex
	reason        model.CloseReason
}

// handle is the registry.Handle this Session installs into the Registry.
// It never exposes the socket, only the enqueue and eviction capability.
type handle struct{ s *Session }

func (h *handle) ID() string { return h.s.id }

func (h *handle) Enqueue(data []byte) bool {
	select {
	case h.s.outbound <- data:
		return true
	default:
		h.s.closeWithReason(model.ReasonSlowConsumer)
		return false
	}
}

func (h *handle) EvictedBySuperseding() {
	h.s.closeWithReason(model.ReasonSuperseded)
}

func (h *handle) Shutdown() {
	h.s.closeWithReason(model.ReasonShutdown)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated user id this session belongs to.
func (s *Session) UserID() string { return s.userID }

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	return model.SessionState(s.state.Load())
}

// CloseReason returns why the session closed; zero value before Close.
func (s *Session) CloseReason() model.CloseReason {
	s.reasonMu.Lock()
	defer s.reasonMu.Unlock()
	return s.reason
}

// Snapshot returns a read-only view for the registry/stats surface.
func (s *Session) Snapshot() model.Snapshot {
	return model.Snapshot{
		SessionID:      s.id,
		UserID:         s.userID,
		RemoteAddr:     s.conn.RemoteAddr(),
		ConnectedAt:    s.connectedAt,
		LastActivityAt: time.Unix(0, s.lastActivityAt.Load()),
		State:          s.State(),
	}
}

func (s *Session) setState(v model.SessionState) { s.state.Store(int32(v)) }

func (s *Session) touch() { s.lastActivityAt.Store(time.Now().UnixNano()) }

// Run drives the session to completion: it blocks until the connection is
// closed, by any cause, and all of the session's sub-goroutines have
// exited. Callers run it in its own goroutine per accepted connection.
func (s *Session) Run(parent context.Context) {
	runCtx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.runHandshakeTimer(runCtx) }()
	go func() { defer wg.Done(); s.runWriter(runCtx) }()
	go func() { defer wg.Done(); s.runHeartbeat(runCtx) }()

	s.runReader(runCtx)

	cancel()
	wg.Wait()
	s.finalize()
}

// closeWithReason records why the session is ending and cancels its
// context. It does not touch the socket itself: the writer goroutine
// owns that, so it gets a chance to drain whatever is already queued
// before the connection goes away out from under it. It is idempotent
// and safe to call from any goroutine, including concurrently from
// another session's registry eviction.
//
// A Superseded session moves to StateSuperseded rather than straight to
// StateClosed: it is still draining, not yet torn down. finalize moves
// every session to StateClosed once its sub-goroutines have joined and
// the registry/directory cleanup has run.
func (s *Session) closeWithReason(reason model.CloseReason) {
	s.closeOnce.Do(func() {
		s.reasonMu.Lock()
		s.reason = reason
		s.reasonMu.Unlock()

		if reason == model.ReasonSuperseded {
			s.setState(model.StateSuperseded)
		} else {
			s.setState(model.StateClosed)
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.log.Debug("session closing", "reason", reason.String())
	})
}

// closeConn closes the underlying socket exactly once, sending the
// WebSocket close code matching the session's CloseReason so the client
// learns why. Only the writer goroutine calls this, and only after it has
// finished draining, so a blocked read elsewhere never unblocks until the
// drain window has had its chance.
func (s *Session) closeConn() {
	s.connCloseOnce.Do(func() {
		reason := s.CloseReason()
		_ = s.conn.Close(reason.CloseCode(), reason.String())
	})
}

// finalize runs exactly once, after every sub-goroutine of Run has
// returned, so the registry entry and directory record are only removed
// once the writer has finished its best-effort drain.
func (s *Session) finalize() {
	s.registry.RemoveIf(s.userID, s.id)

	if s.directory != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.directory.Delete(ctx, s.userID, s.id); err != nil {
			s.log.Warn("directory delete failed on session close", "error", err)
		}
	}

	s.setState(model.StateClosed)
	s.log.Info("session closed", "reason", s.CloseReason().String(),
		"duration", time.Since(s.connectedAt))
}

func (s *Session) runHandshakeTimer(ctx context.Context) {
	timer := time.NewTimer(s.opts.HandshakeTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
		if s.State() == model.StatePending {
			s.closeWithReason(model.ReasonHandshakeTimeout)
		}
	}
}

func (s *Session) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.opts.HeartbeatCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Pending is bounded by the handshake timer, not by activity.
			if s.State() == model.StatePending {
				continue
			}
			last := time.Unix(0, s.lastActivityAt.Load())
			if time.Since(last) > s.opts.HeartbeatTimeout {
				s.log.Warn("heartbeat timeout", "since_last_activity", time.Since(last))
				s.closeWithReason(model.ReasonGoingAway)
				return
			}
		}
	}
}

// runWriter owns the socket's write side and, uniquely, its close: it is
// the only goroutine that calls closeConn, and only after draining, so
// the bounded best-effort flush in drainOnClose always runs against a
// still-open connection.
func (s *Session) runWriter(ctx context.Context) {
	defer s.closeConn()
	for {
		select {
		case <-ctx.Done():
			s.drainOnClose()
			return
		case data := <-s.outbound:
			if err := s.conn.WriteBinary(data); err != nil {
				s.log.Debug("write failed, closing", "error", err)
				s.closeWithReason(model.ReasonGoingAway)
				s.drainOnClose()
				return
			}
		}
	}
}

// drainOnClose flushes whatever is already queued, up to a short bounded
// deadline, so frames enqueued just before a graceful shutdown still have
// a chance to reach the client.
func (s *Session) drainOnClose() {
	deadline := time.NewTimer(s.opts.WriterDrainTimeout)
	defer deadline.Stop()

	for {
		select {
		case data := <-s.outbound:
			_ = s.conn.WriteBinary(data)
		case <-deadline.C:
			return
		default:
			return
		}
	}
}

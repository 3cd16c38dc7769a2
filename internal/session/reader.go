package session

import (
	"context"
	"errors"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
)

var errProtocolViolation = errors.New("session: protocol violation")

// runReader is the foreground loop of Run: it blocks reading frames until
// the connection errors, the context is cancelled, or the client violates
// the protocol. Any of those causes closeWithReason to have been called
// (directly or via the write side) by the time it returns.
func (s *Session) runReader(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, ok, err := s.conn.ReadBinary()
		if err != nil {
			s.closeWithReason(model.ReasonGoingAway)
			return
		}
		if !ok {
			continue
		}

		s.touch()

		frame, err := model.UnmarshalFrame(data)
		if err != nil {
			s.log.Debug("malformed frame, closing", "error", err)
			s.closeWithReason(model.ReasonPolicyViolation)
			return
		}

		if err := s.handleFrame(frame); err != nil {
			return
		}
	}
}

func (s *Session) handleFrame(frame model.Frame) error {
	switch s.State() {
	case model.StatePending:
		if frame.Code != model.CodeRegister {
			s.closeWithReason(model.ReasonPolicyViolation)
			return errProtocolViolation
		}
		s.handleRegister()
		return nil

	case model.StateActive:
		if frame.Code == model.CodeHeartBeat {
			s.handle.Enqueue(model.Frame{Code: model.CodeHeartBeatSuccess}.Marshal())
		}
		// Any other code arriving from the client in Active is not part
		// of the control vocabulary and is ignored rather than treated
		// as a violation.
		return nil

	default:
		// Superseded or Closed: the connection is already unwinding.
		return nil
	}
}

// handleRegister transitions Pending -> Active. REGISTER_SUCCESS is
// enqueued before the handle is installed into the registry, so it is
// always the first frame in the outbound queue: nothing else can reach
// this session's queue until Insert makes it visible to the dispatcher.
func (s *Session) handleRegister() {
	s.handle.Enqueue(model.Frame{Code: model.CodeRegisterSuccess}.Marshal())

	previous, hadPrevious := s.registry.Insert(s.userID, s.handle)
	if hadPrevious {
		previous.EvictedBySuperseding()
	}

	if s.directory != nil {
		record := model.NewDirectoryRecord(string(s.brokerID), s.id)
		if err := s.directory.Put(context.Background(), s.userID, record, s.opts.DirectoryTTL); err != nil {
			s.log.Warn("directory put failed on register", "error", err)
		}
	}

	s.setState(model.StateActive)
	s.log.Info("session registered")
}

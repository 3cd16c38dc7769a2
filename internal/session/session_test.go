package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
)

// fakeConn is an in-memory Conn: inbound is fed by the test, outbound
// frames land in written for assertions.
type fakeConn struct {
	mu         sync.Mutex
	inbound    chan []byte
	written    [][]byte
	closed     bool
	closeCode  int
	closeCause string
	writeGate  chan struct{} // when non-nil, WriteBinary blocks until it's closed
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) push(data []byte) { c.inbound <- data }

func (c *fakeConn) ReadBinary() ([]byte, bool, error) {
	data, ok := <-c.inbound
	if !ok {
		return nil, false, errors.New("fakeConn: closed")
	}
	return data, true, nil
}

func (c *fakeConn) WriteBinary(data []byte) error {
	c.mu.Lock()
	gate := c.writeGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("fakeConn: write on closed conn")
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) RemoteAddr() string              { return "127.0.0.1:0" }

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
		c.closeCause = reason
		close(c.inbound)
	}
	return nil
}

func (c *fakeConn) snapshotWritten() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// fakeDirectory is an in-memory DirectoryClient.
type fakeDirectory struct {
	mu      sync.Mutex
	records map[string]model.DirectoryRecord
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{records: make(map[string]model.DirectoryRecord)}
}

func (d *fakeDirectory) Put(_ context.Context, userID string, record model.DirectoryRecord, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[userID] = record
	return nil
}

func (d *fakeDirectory) Delete(_ context.Context, userID, ownerSessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.records[userID]; ok && rec.SessionID == ownerSessionID {
		delete(d.records, userID)
	}
	return nil
}

func newTestFactory(reg *registry.Registry, dir DirectoryClient) *Factory {
	opts := Options{
		HandshakeTimeout:       50 * time.Millisecond,
		HeartbeatCheckInterval: 10 * time.Millisecond,
		HeartbeatTimeout:       40 * time.Millisecond,
		WriterDrainTimeout:     20 * time.Millisecond,
		QueueCapacity:          4,
		DirectoryTTL:           time.Minute,
	}
	return NewFactory(reg, dir, "broker-1", opts, nil)
}

func runAndWait(s *Session) {
	done := make(chan struct{})
	go func() { s.Run(context.Background()); close(done) }()
	<-done
}

func TestRegisterTransitionsToActiveAndAcksFirst(t *testing.T) {
	reg := registry.New()
	dir := newFakeDirectory()
	f := newTestFactory(reg, dir)
	conn := newFakeConn()

	s := f.New("s1", "u1", conn)
	conn.push(model.Frame{Code: model.CodeRegister}.Marshal())

	go func() {
		time.Sleep(10 * time.Millisecond)
		conn.Close(1000, "test")
	}()
	runAndWait(s)

	written := conn.snapshotWritten()
	require.NotEmpty(t, written)
	first, err := model.UnmarshalFrame(written[0])
	require.NoError(t, err)
	assert.Equal(t, model.CodeRegisterSuccess, first.Code)
}

func TestHandshakeTimeoutClosesPendingSession(t *testing.T) {
	reg := registry.New()
	f := newTestFactory(reg, newFakeDirectory())
	conn := newFakeConn()

	s := f.New("s1", "u1", conn)
	runAndWait(s)

	assert.Equal(t, model.ReasonHandshakeTimeout, s.CloseReason())
	assert.Equal(t, model.StateClosed, s.State())
}

func TestNonRegisterFrameInPendingIsPolicyViolation(t *testing.T) {
	reg := registry.New()
	f := newTestFactory(reg, newFakeDirectory())
	conn := newFakeConn()

	s := f.New("s1", "u1", conn)
	conn.push(model.Frame{Code: model.CodeHeartBeat}.Marshal())
	runAndWait(s)

	assert.Equal(t, model.ReasonPolicyViolation, s.CloseReason())
}

func TestHeartbeatRepliesWithHeartBeatSuccess(t *testing.T) {
	reg := registry.New()
	f := newTestFactory(reg, newFakeDirectory())
	conn := newFakeConn()

	s := f.New("s1", "u1", conn)
	conn.push(model.Frame{Code: model.CodeRegister}.Marshal())
	conn.push(model.Frame{Code: model.CodeHeartBeat}.Marshal())

	go func() {
		time.Sleep(10 * time.Millisecond)
		conn.Close(1000, "test")
	}()
	runAndWait(s)

	written := conn.snapshotWritten()
	require.Len(t, written, 2)
	second, err := model.UnmarshalFrame(written[1])
	require.NoError(t, err)
	assert.Equal(t, model.CodeHeartBeatSuccess, second.Code)
}

func TestSecondLoginEvictsFirstSession(t *testing.T) {
	reg := registry.New()
	dir := newFakeDirectory()
	f := newTestFactory(reg, dir)

	conn1 := newFakeConn()
	s1 := f.New("s1", "u1", conn1)
	conn1.push(model.Frame{Code: model.CodeRegister}.Marshal())

	done1 := make(chan struct{})
	go func() { s1.Run(context.Background()); close(done1) }()

	require.Eventually(t, func() bool {
		return s1.State() == model.StateActive
	}, time.Second, time.Millisecond)

	conn2 := newFakeConn()
	s2 := f.New("s2", "u1", conn2)
	conn2.push(model.Frame{Code: model.CodeRegister}.Marshal())

	done2 := make(chan struct{})
	go func() { s2.Run(context.Background()); close(done2) }()

	<-done1 // s1 unwinds once evicted

	assert.Equal(t, model.ReasonSuperseded, s1.CloseReason())

	h, ok := reg.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "s2", h.ID())

	conn2.Close(1000, "test")
	<-done2
}

func TestSlowConsumerClosesOnFullQueue(t *testing.T) {
	reg := registry.New()
	f := newTestFactory(reg, newFakeDirectory())
	conn := newFakeConn()

	conn.mu.Lock()
	conn.writeGate = make(chan struct{}) // blocks the writer from draining
	conn.mu.Unlock()

	s := f.New("s1", "u1", conn)
	conn.push(model.Frame{Code: model.CodeRegister}.Marshal())

	done := make(chan struct{})
	go func() { s.Run(context.Background()); close(done) }()

	require.Eventually(t, func() bool {
		return s.State() == model.StateActive
	}, time.Second, time.Millisecond)

	// The writer is stalled mid-write on the gated REGISTER_SUCCESS frame,
	// so nothing drains the queue: filling past capacity must report false
	// and close the session as a slow consumer.
	var lastOK bool
	for i := 0; i < 10; i++ {
		lastOK = s.handle.Enqueue([]byte("frame"))
		if !lastOK {
			break
		}
	}
	assert.False(t, lastOK)

	close(conn.writeGate) // let the stalled writer unblock so Run can return
	<-done
	assert.Equal(t, model.ReasonSlowConsumer, s.CloseReason())
}

func TestShutdownClosesActiveSessionWithCloseCode(t *testing.T) {
	reg := registry.New()
	f := newTestFactory(reg, newFakeDirectory())
	conn := newFakeConn()

	s := f.New("s1", "u1", conn)
	conn.push(model.Frame{Code: model.CodeRegister}.Marshal())

	done := make(chan struct{})
	go func() { s.Run(context.Background()); close(done) }()

	require.Eventually(t, func() bool {
		return s.State() == model.StateActive
	}, time.Second, time.Millisecond)

	s.handle.Shutdown()
	<-done

	assert.Equal(t, model.ReasonShutdown, s.CloseReason())
	assert.Equal(t, model.StateClosed, s.State())

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, model.ReasonShutdown.CloseCode(), conn.closeCode)
}

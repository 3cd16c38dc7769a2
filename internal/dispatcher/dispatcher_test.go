package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
)

// fakeHandle is a minimal registry.Handle for dispatcher tests: it records
// every frame it receives and can be told to reject enqueues to simulate a
// full outbound queue.
type fakeHandle struct {
	id       string
	full     bool
	received [][]byte
	evicted  bool
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Enqueue(data []byte) bool {
	if h.full {
		return false
	}
	h.received = append(h.received, data)
	return true
}

func (h *fakeHandle) EvictedBySuperseding() { h.evicted = true }

func (h *fakeHandle) Shutdown() { h.evicted = true }

func TestDispatchDeliversToRegisteredRecipients(t *testing.T) {
	reg := registry.New()
	alice := &fakeHandle{id: "s-alice"}
	bob := &fakeHandle{id: "s-bob"}
	reg.Insert("alice", alice)
	reg.Insert("bob", bob)

	d := New(reg, nil)
	stats := d.Dispatch(model.BrokerMessage{
		Code:    model.FrameCode(1000),
		Ids:     []string{"alice", "bob"},
		Payload: []byte(`{"text":"hi"}`),
	})

	assert.Equal(t, Stats{Delivered: 2}, stats)
	assert.Len(t, alice.received, 1)
	assert.Len(t, bob.received, 1)
}

func TestDispatchCountsMissingRecipientsAsMissed(t *testing.T) {
	reg := registry.New()
	alice := &fakeHandle{id: "s-alice"}
	reg.Insert("alice", alice)

	d := New(reg, nil)
	stats := d.Dispatch(model.BrokerMessage{
		Code: model.FrameCode(1000),
		Ids:  []string{"alice", "ghost"},
	})

	assert.Equal(t, Stats{Delivered: 1, Missed: 1}, stats)
}

func TestDispatchCountsFullQueueAsSlow(t *testing.T) {
	reg := registry.New()
	alice := &fakeHandle{id: "s-alice", full: true}
	reg.Insert("alice", alice)

	d := New(reg, nil)
	stats := d.Dispatch(model.BrokerMessage{
		Code: model.FrameCode(1000),
		Ids:  []string{"alice"},
	})

	assert.Equal(t, Stats{Slow: 1}, stats)
	assert.Empty(t, alice.received)
}

func TestDispatchBuildsFrameFromMessage(t *testing.T) {
	reg := registry.New()
	alice := &fakeHandle{id: "s-alice"}
	reg.Insert("alice", alice)

	d := New(reg, nil)
	d.Dispatch(model.BrokerMessage{
		Code:    model.FrameCode(1000),
		Ids:     []string{"alice"},
		Payload: []byte(`{"text":"hi"}`),
	})

	if len(alice.received) != 1 {
		t.Fatalf("expected exactly one frame enqueued, got %d", len(alice.received))
	}

	decoded, err := model.UnmarshalFrame(alice.received[0])
	if err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	assert.Equal(t, model.FrameCode(1000), decoded.Code)
	assert.Equal(t, []byte(`{"text":"hi"}`), decoded.Data)
}

func TestTotalsAccumulateAcrossDispatchCalls(t *testing.T) {
	reg := registry.New()
	alice := &fakeHandle{id: "s-alice"}
	reg.Insert("alice", alice)

	d := New(reg, nil)
	d.Dispatch(model.BrokerMessage{Code: model.FrameCode(1000), Ids: []string{"alice", "ghost"}})
	d.Dispatch(model.BrokerMessage{Code: model.FrameCode(1000), Ids: []string{"alice"}})

	assert.Equal(t, Stats{Delivered: 2, Missed: 1}, d.Totals())
}

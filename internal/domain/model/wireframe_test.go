package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Code: CodeRegisterSuccess, Data: []byte(`{"ok":true}`)}

	decoded, err := UnmarshalFrame(f.Marshal())
	require.NoError(t, err)
	assert.Equal(t, f.Code, decoded.Code)
	assert.Equal(t, f.Data, decoded.Data)
}

func TestFrameRoundTripWithoutData(t *testing.T) {
	f := Frame{Code: CodeHeartBeatSuccess}

	decoded, err := UnmarshalFrame(f.Marshal())
	require.NoError(t, err)
	assert.Equal(t, f.Code, decoded.Code)
	assert.Empty(t, decoded.Data)
}

func TestUnmarshalFrameRejectsMissingCode(t *testing.T) {
	_, err := UnmarshalFrame(nil)
	assert.Error(t, err)
}

func TestUnmarshalFrameRejectsGarbage(t *testing.T) {
	_, err := UnmarshalFrame([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestIsDelivery(t *testing.T) {
	assert.False(t, CodeRegister.IsDelivery())
	assert.False(t, CodeHeartBeat.IsDelivery())
	assert.True(t, FrameCode(1000).IsDelivery())
	assert.True(t, FrameCode(1999).IsDelivery())
	assert.False(t, FrameCode(2000).IsDelivery())
}

func TestBrokerMessageValidate(t *testing.T) {
	assert.Error(t, BrokerMessage{}.Validate())
	assert.Error(t, BrokerMessage{Code: FrameCode(1000)}.Validate())
	assert.NoError(t, BrokerMessage{Code: FrameCode(1000), Ids: []string{"u1"}}.Validate())
}

func TestBrokerMessageToFrame(t *testing.T) {
	m := BrokerMessage{Code: FrameCode(1000), Ids: []string{"u1"}, Payload: []byte(`{"text":"hi"}`)}
	f := m.ToFrame()
	assert.Equal(t, FrameCode(1000), f.Code)
	assert.Equal(t, []byte(`{"text":"hi"}`), f.Data)
}

package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupFirstSeenReturnsFalse(t *testing.T) {
	d, err := newDedup(8)
	require.NoError(t, err)

	assert.False(t, d.seen("msg-1"))
}

func TestDedupSecondSeenReturnsTrue(t *testing.T) {
	d, err := newDedup(8)
	require.NoError(t, err)

	assert.False(t, d.seen("msg-1"))
	assert.True(t, d.seen("msg-1"))
}

func TestDedupEvictsOldestBeyondCapacity(t *testing.T) {
	d, err := newDedup(2)
	require.NoError(t, err)

	assert.False(t, d.seen("a"))
	assert.False(t, d.seen("b"))
	assert.False(t, d.seen("c")) // evicts "a", the least recently touched

	assert.False(t, d.seen("a"), "a was evicted, so it looks new again")
}

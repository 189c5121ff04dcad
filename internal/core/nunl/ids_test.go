package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func idFromByte(b byte) NodeID {
	var id NodeID
	id[len(id)-1] = b
	return id
}

func TestNodeID_Less(t *testing.T) {
	a := idFromByte(0x01)
	b := idFromByte(0x02)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestSortNodeIDs(t *testing.T) {
	ids := []NodeID{idFromByte(0x03), idFromByte(0x01), idFromByte(0x02)}
	sorted := SortNodeIDs(ids)
	assert.Equal(t, []NodeID{idFromByte(0x01), idFromByte(0x02), idFromByte(0x03)}, sorted)

	// original slice must not be mutated
	assert.Equal(t, byte(0x03), ids[0][len(ids[0])-1])
}

func TestNodeIDOf_Deterministic(t *testing.T) {
	var key ValidatorKey
	key[0] = 0xED
	for i := 1; i < len(key); i++ {
		key[i] = byte(i)
	}

	first := NodeIDOf(key)
	second := NodeIDOf(key)
	assert.Equal(t, first, second)

	key[1] ^= 0xFF
	assert.NotEqual(t, first, NodeIDOf(key))
}

package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// S5: a validator noted 100 ledgers ago is still shielded (<= NewSkip);
// only past NewSkip+1 is it unshielded and purged.
func TestNewValidatorTracker_ShieldWindow(t *testing.T) {
	tr := NewNewValidatorTracker()
	id := idFromByte(1)
	tr.NoteNewlyTrusted(id, 1000)

	assert.True(t, tr.IsShielded(id, 1100, 512)) // 100 ledgers in
	assert.True(t, tr.IsShielded(id, 1512, 512)) // diff == NewSkip, still shielded
	assert.False(t, tr.IsShielded(id, 1513, 512)) // diff == NewSkip+1, unshielded

	tr.Purge(1512, 512)
	assert.True(t, tr.Contains(id))

	tr.Purge(1513, 512)
	assert.False(t, tr.Contains(id))
	assert.False(t, tr.IsShielded(id, 1513, 512))
}

func TestNewValidatorTracker_NoteIsIdempotent(t *testing.T) {
	tr := NewNewValidatorTracker()
	id := idFromByte(1)
	tr.NoteNewlyTrusted(id, 1000)
	tr.NoteNewlyTrusted(id, 5000) // should not reset the join sequence

	assert.False(t, tr.IsShielded(id, 1600, 512))
}

func TestNewValidatorTracker_UnknownIDNeverShielded(t *testing.T) {
	tr := NewNewValidatorTracker()
	assert.False(t, tr.IsShielded(idFromByte(9), 100, 512))
	assert.False(t, tr.Contains(idFromByte(9)))
}

func TestNewValidatorTracker_PurgeKeepsUnexpired(t *testing.T) {
	tr := NewNewValidatorTracker()
	old := idFromByte(1)
	recent := idFromByte(2)
	tr.NoteNewlyTrusted(old, 0)
	tr.NoteNewlyTrusted(recent, 900)

	tr.Purge(1000, 512)

	assert.False(t, tr.Contains(old))
	assert.True(t, tr.Contains(recent))
}

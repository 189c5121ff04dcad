package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(b byte) ValidatorKey {
	var k ValidatorKey
	k[len(k)-1] = b
	return k
}

func TestApplyModification_RejectsNonFlagLedger(t *testing.T) {
	state := State{}
	mod := Modification{Op: OpDisable, Seq: 257, ValidatorKey: keyOf(1)}
	_, reason, ok := ApplyModification(state, mod, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectNonFlagLedger, reason)
}

// S7: a Disable when toDisable is already set is rejected; on the next
// flag ledger with clear slots, the same modification is accepted, sets
// the slot, and leaves nUnl unchanged until the flag transition.
func TestApplyModification_S7(t *testing.T) {
	occupied := State{ToDisable: ptr(keyOf(9))}
	_, reason, ok := ApplyModification(occupied, Modification{Op: OpDisable, Seq: 256, ValidatorKey: keyOf(1)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectSlotOccupied, reason)

	clear := State{}
	next, _, ok := ApplyModification(clear, Modification{Op: OpDisable, Seq: 512, ValidatorKey: keyOf(1)}, 256)
	require.True(t, ok)
	require.NotNil(t, next.ToDisable)
	assert.Equal(t, keyOf(1), *next.ToDisable)
	assert.Empty(t, next.NUnl, "nUnl must not change until the flag transition")
}

func TestApplyModification_DisableConflictsWithPendingReEnable(t *testing.T) {
	state := State{ToReEnable: ptr(keyOf(1))}
	_, reason, ok := ApplyModification(state, Modification{Op: OpDisable, Seq: 256, ValidatorKey: keyOf(1)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectConflict, reason)
}

func TestApplyModification_DisableAlreadyListed(t *testing.T) {
	state := State{NUnl: []ValidatorKey{keyOf(1)}}
	_, reason, ok := ApplyModification(state, Modification{Op: OpDisable, Seq: 256, ValidatorKey: keyOf(1)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectAlreadyListed, reason)
}

func TestApplyModification_ReEnableNotListed(t *testing.T) {
	state := State{}
	_, reason, ok := ApplyModification(state, Modification{Op: OpReEnable, Seq: 256, ValidatorKey: keyOf(1)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectNotListed, reason)
}

func TestApplyModification_ReEnableConflictsWithPendingDisable(t *testing.T) {
	state := State{NUnl: []ValidatorKey{keyOf(1)}, ToDisable: ptr(keyOf(1))}
	_, reason, ok := ApplyModification(state, Modification{Op: OpReEnable, Seq: 256, ValidatorKey: keyOf(1)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectConflict, reason)
}

func TestApplyModification_ReEnableSlotOccupied(t *testing.T) {
	state := State{NUnl: []ValidatorKey{keyOf(1), keyOf(2)}, ToReEnable: ptr(keyOf(1))}
	_, reason, ok := ApplyModification(state, Modification{Op: OpReEnable, Seq: 256, ValidatorKey: keyOf(2)}, 256)
	assert.False(t, ok)
	assert.Equal(t, RejectSlotOccupied, reason)
}

func TestApplyFlagTransition_Idempotent(t *testing.T) {
	state := State{NUnl: []ValidatorKey{keyOf(1)}}
	first := ApplyFlagTransition(state)
	second := ApplyFlagTransition(first)
	assert.Equal(t, first, second)
}

func TestApplyFlagTransition_Disable(t *testing.T) {
	state := State{ToDisable: ptr(keyOf(1))}
	next := ApplyFlagTransition(state)
	assert.Nil(t, next.ToDisable)
	assert.Equal(t, []ValidatorKey{keyOf(1)}, next.NUnl)
}

func TestApplyFlagTransition_ReEnable(t *testing.T) {
	state := State{NUnl: []ValidatorKey{keyOf(1), keyOf(2)}, ToReEnable: ptr(keyOf(1))}
	next := ApplyFlagTransition(state)
	assert.Nil(t, next.ToReEnable)
	assert.Equal(t, []ValidatorKey{keyOf(2)}, next.NUnl)
}

// Round-trip: NotListed -> PendingDisable -> Listed -> PendingReEnable
// -> NotListed over exactly four flag-ledger boundaries.
func TestRoundTrip_FourFlagLedgers(t *testing.T) {
	key := keyOf(7)
	state := State{}
	const window = 256

	// boundary 1: propose disable
	state, _, ok := ApplyModification(state, Modification{Op: OpDisable, Seq: window, ValidatorKey: key}, window)
	require.True(t, ok)
	require.NotNil(t, state.ToDisable)
	assert.False(t, state.Contains(key))

	// boundary 2: flag transition lists it
	state = ApplyFlagTransition(state)
	assert.True(t, state.Contains(key))
	assert.Nil(t, state.ToDisable)

	// boundary 3: propose re-enable
	state, _, ok = ApplyModification(state, Modification{Op: OpReEnable, Seq: 2 * window, ValidatorKey: key}, window)
	require.True(t, ok)
	require.NotNil(t, state.ToReEnable)
	assert.True(t, state.Contains(key), "still listed until the flag transition")

	// boundary 4: flag transition delists it
	state = ApplyFlagTransition(state)
	assert.False(t, state.Contains(key))
	assert.Nil(t, state.ToReEnable)
}

func TestState_Clone_IsIndependent(t *testing.T) {
	original := State{NUnl: []ValidatorKey{keyOf(1)}, ToDisable: ptr(keyOf(2))}
	clone := original.Clone()

	clone.NUnl[0] = keyOf(9)
	*clone.ToDisable = keyOf(9)

	assert.Equal(t, keyOf(1), original.NUnl[0])
	assert.Equal(t, keyOf(2), *original.ToDisable)
}

func ptr(k ValidatorKey) *ValidatorKey { return &k }

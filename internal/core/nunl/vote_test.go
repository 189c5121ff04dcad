package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vkey builds a distinct ValidatorKey from a single byte, mirroring
// tx/unl's testKey helper.
func vkey(b byte) ValidatorKey {
	var k ValidatorKey
	k[len(k)-1] = b
	return k
}

func vkeysOf(bytes ...byte) []ValidatorKey {
	keys := make([]ValidatorKey, len(bytes))
	for i, b := range bytes {
		keys[i] = vkey(b)
	}
	return keys
}

// nidOfKey is the NodeID a fakeStore/fakeSkipList must use to represent
// vkey(b)'s validation activity, since Decide derives NodeIDs from
// ValidatorKeys itself rather than accepting them directly.
func nidOfKey(b byte) NodeID {
	return NodeIDOf(vkey(b))
}

func TestVoter_Decide_S1_NoVote(t *testing.T) {
	unl := vkeysOf(1, 2, 3)
	window := buildWindow(256)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = []NodeID{nidOfKey(1), nidOfKey(2), nidOfKey(3)}
	}

	v := NewVoter(DefaultParams(), fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, NewNewValidatorTracker())
	vote, err := v.Decide(LedgerHash{}, 256, unl, nil, vkey(1))
	require.NoError(t, err)
	assert.True(t, vote.IsEmpty())
}

func TestVoter_Decide_S2_DisableOneBad(t *testing.T) {
	unl := vkeysOf(1, 2, 3)
	window := buildWindow(256)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = []NodeID{nidOfKey(1), nidOfKey(2)} // validator 3 never validates
	}

	v := NewVoter(DefaultParams(), fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, NewNewValidatorTracker())
	vote, err := v.Decide(LedgerHash{}, 256, unl, nil, vkey(1))
	require.NoError(t, err)
	require.NotNil(t, vote.Disable)
	assert.Equal(t, vkey(3), *vote.Disable)
	assert.Nil(t, vote.ReEnable)
}

func TestVoter_Decide_AbstainsOnInsufficientHistory(t *testing.T) {
	unl := vkeysOf(1)
	v := NewVoter(DefaultParams(), fakeStore{}, fakeSkipList{ancestors: buildWindow(5)}, nil)
	_, err := v.Decide(LedgerHash{}, 256, unl, nil, vkey(1))
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestVoter_Decide_Deterministic(t *testing.T) {
	unl := vkeysOf(1, 2, 3, 4)
	window := buildWindow(256)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = []NodeID{nidOfKey(1), nidOfKey(2), nidOfKey(4)} // validator 3 never validates
	}
	parent := hashOf(0xAB)

	v1 := NewVoter(DefaultParams(), fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, NewNewValidatorTracker())
	v2 := NewVoter(DefaultParams(), fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, NewNewValidatorTracker())

	vote1, err1 := v1.Decide(parent, 256, unl, nil, vkey(1))
	vote2, err2 := v2.Decide(parent, 256, unl, nil, vkey(1))

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, vote1, vote2)
}

// S3: a validator already listed in the ledger's N-UNL, still on the
// live UNL, that recovers to a full score is voted to re-enable — and
// the winning NodeID resolves back to the ValidatorKey seeded from the
// nUnl argument, not the unl argument.
func TestVoter_Decide_ReEnableRecovered(t *testing.T) {
	unl := vkeysOf(1, 2, 3)
	nUnl := vkeysOf(3)
	window := buildWindow(256)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = []NodeID{nidOfKey(1), nidOfKey(2), nidOfKey(3)}
	}

	v := NewVoter(DefaultParams(), fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, NewNewValidatorTracker())
	vote, err := v.Decide(LedgerHash{}, 256, unl, nUnl, vkey(1))
	require.NoError(t, err)
	require.NotNil(t, vote.ReEnable)
	assert.Equal(t, vkey(3), *vote.ReEnable)
	assert.Nil(t, vote.Disable)
}

// C5 integration: Decide purges expired shield entries before scoring,
// so a validator whose NewSkip window has lapsed can be disabled the
// same pass it loses its shield.
func TestVoter_Decide_PurgesExpiredShield(t *testing.T) {
	unl := vkeysOf(1, 2)
	window := buildWindow(256)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = []NodeID{nidOfKey(1)} // validator 2 never validates
	}

	tracker := NewNewValidatorTracker()
	tracker.NoteNewlyTrusted(nidOfKey(2), 0)

	params := DefaultParams()
	v := NewVoter(params, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, tracker)

	parentSeq := params.NewSkip + 257
	vote, err := v.Decide(LedgerHash{}, parentSeq, unl, nil, vkey(1))
	require.NoError(t, err)
	require.NotNil(t, vote.Disable)
	assert.Equal(t, vkey(2), *vote.Disable)
	assert.False(t, tracker.Contains(nidOfKey(2)), "Decide must purge expired shield entries (C5)")
}

func TestVote_Modifications(t *testing.T) {
	disable := vkey(1)
	reenable := vkey(2)

	empty := Vote{}
	assert.Empty(t, empty.Modifications(256))

	vote := Vote{Disable: &disable}
	assert.Equal(t, []Modification{{Op: OpDisable, Seq: 256, ValidatorKey: disable}}, vote.Modifications(256))

	vote = Vote{ReEnable: &reenable}
	assert.Equal(t, []Modification{{Op: OpReEnable, Seq: 256, ValidatorKey: reenable}}, vote.Modifications(256))
}

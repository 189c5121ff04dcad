package nunl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSkipList struct {
	ancestors []LedgerHash
	err       error
}

func (f fakeSkipList) AncestorHashes(LedgerHash) ([]LedgerHash, error) {
	return f.ancestors, f.err
}

type fakeStore struct {
	byHash map[LedgerHash][]NodeID
	err    error
}

func (f fakeStore) TrustedValidatorsFor(hash LedgerHash) ([]NodeID, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byHash[hash], nil
}

func hashOf(b byte) LedgerHash {
	var h LedgerHash
	h[len(h)-1] = b
	return h
}

func buildWindow(n int) []LedgerHash {
	hashes := make([]LedgerHash, n)
	for i := 0; i < n; i++ {
		hashes[i] = hashOf(byte(i + 1))
	}
	return hashes
}

// S1: every validator validates every ancestor -> full score.
func TestBuildScoreTable_AllGood(t *testing.T) {
	unl := unlOf(1, 2, 3)
	window := buildWindow(4)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = unl
	}

	params := NewParams(4)
	scores, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, idFromByte(1))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), scores[idFromByte(1)])
	assert.Equal(t, uint32(4), scores[idFromByte(2)])
	assert.Equal(t, uint32(4), scores[idFromByte(3)])
}

func TestBuildScoreTable_InsufficientHistory(t *testing.T) {
	unl := unlOf(1)
	params := NewParams(10)
	_, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{}, fakeSkipList{ancestors: buildWindow(3)}, idFromByte(1))
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestBuildScoreTable_UsesOnlyTrailingWindow(t *testing.T) {
	unl := unlOf(1, 2)
	// 6 ancestors, window 4: only the last 4 should be consulted. Node 1
	// (the local node) validates only the trailing 4; node 2 validates
	// only the two stale ancestors outside the window.
	window := buildWindow(6)
	byHash := map[LedgerHash][]NodeID{
		window[0]: unlOf(2),
		window[1]: unlOf(2),
		window[2]: unlOf(1),
		window[3]: unlOf(1),
		window[4]: unlOf(1),
		window[5]: unlOf(1),
	}
	params := NewParams(4)
	scores, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, idFromByte(1))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), scores[idFromByte(1)])
	assert.Equal(t, uint32(0), scores[idFromByte(2)], "stale ancestors outside the window must not count")
}

func TestBuildScoreTable_LocalUnderParticipation(t *testing.T) {
	unl := unlOf(1, 2)
	window := buildWindow(10)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = unlOf(2) // node 1 never validates
	}
	params := NewParams(10)
	_, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, idFromByte(1))
	assert.ErrorIs(t, err, ErrLocalUnderParticipation)
}

func TestBuildScoreTable_NotOnUNLAbstains(t *testing.T) {
	unl := unlOf(2)
	window := buildWindow(10)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = unlOf(2)
	}
	params := NewParams(10)
	_, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, idFromByte(1))
	assert.ErrorIs(t, err, ErrLocalUnderParticipation)
}

func TestBuildScoreTable_StoreErrorPropagates(t *testing.T) {
	unl := unlOf(1)
	window := buildWindow(4)
	boom := errors.New("boom")
	params := NewParams(4)
	_, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{err: boom}, fakeSkipList{ancestors: window}, idFromByte(1))
	assert.ErrorIs(t, err, boom)
}

func TestBuildScoreTable_SkipListErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	params := NewParams(4)
	_, err := BuildScoreTable(params, LedgerHash{}, unlOf(1), fakeStore{}, fakeSkipList{err: boom}, idFromByte(1))
	assert.ErrorIs(t, err, boom)
}

func TestBuildScoreTable_IgnoresValidatorsOutsideUNL(t *testing.T) {
	unl := unlOf(1)
	window := buildWindow(4)
	byHash := make(map[LedgerHash][]NodeID, len(window))
	for _, h := range window {
		byHash[h] = unlOf(1, 99) // 99 is not trusted by this node
	}
	params := NewParams(4)
	scores, err := BuildScoreTable(params, LedgerHash{}, unl, fakeStore{byHash: byHash}, fakeSkipList{ancestors: window}, idFromByte(1))
	require.NoError(t, err)
	_, tracked := scores[idFromByte(99)]
	assert.False(t, tracked)
}

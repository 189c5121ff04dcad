package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func unlOf(bytes ...byte) []NodeID {
	ids := make([]NodeID, len(bytes))
	for i, b := range bytes {
		ids[i] = idFromByte(b)
	}
	return ids
}

func neverShielded(NodeID) bool { return false }

// S1: all validators score the full window, nUnl empty -> no candidates.
func TestFindCandidates_AllGood(t *testing.T) {
	params := NewParams(256)
	unl := unlOf(1, 2, 3)
	scores := ScoreTable{
		idFromByte(1): 256,
		idFromByte(2): 256,
		idFromByte(3): 256,
	}
	got := FindCandidates(params, unl, map[NodeID]bool{}, scores, neverShielded)
	assert.Empty(t, got.ToDisable)
	assert.Empty(t, got.ToReEnable)
}

// S2: one validator scores 0, everyone else scores full -> one disable candidate.
func TestFindCandidates_OneBad(t *testing.T) {
	params := NewParams(256)
	unl := unlOf(1, 2, 3)
	scores := ScoreTable{
		idFromByte(1): 256,
		idFromByte(2): 256,
		idFromByte(3): 0,
	}
	got := FindCandidates(params, unl, map[NodeID]bool{}, scores, neverShielded)
	assert.Equal(t, []NodeID{idFromByte(3)}, got.ToDisable)
	assert.Empty(t, got.ToReEnable)
}

// S3: a listed validator recovers to a high score -> re-enable candidate.
func TestFindCandidates_Recovery(t *testing.T) {
	params := NewParams(256)
	unl := unlOf(1, 2, 3)
	nUnl := map[NodeID]bool{idFromByte(3): true}
	scores := ScoreTable{
		idFromByte(1): 256,
		idFromByte(2): 256,
		idFromByte(3): 256,
	}
	got := FindCandidates(params, unl, nUnl, scores, neverShielded)
	assert.Empty(t, got.ToDisable)
	assert.Equal(t, []NodeID{idFromByte(3)}, got.ToReEnable)
}

// S4: cap reached, no new disables even though two validators score 0;
// a listed validator scoring high can still be re-enabled.
func TestFindCandidates_MaxListed(t *testing.T) {
	params := NewParams(256)
	unl := make([]NodeID, 32)
	nUnl := make(map[NodeID]bool, 8)
	scores := make(ScoreTable, 32)
	for i := 0; i < 32; i++ {
		id := idFromByte(byte(i + 1))
		unl[i] = id
		scores[id] = 256
	}
	for i := 0; i < 8; i++ {
		nUnl[unl[i]] = true
	}
	// two more, not yet listed, score 0
	scores[unl[8]] = 0
	scores[unl[9]] = 0
	// one already-listed validator recovers
	scores[unl[0]] = 256

	got := FindCandidates(params, unl, nUnl, scores, neverShielded)
	assert.Empty(t, got.ToDisable, "cap of 8 already reached, no room for new disables")
	assert.Contains(t, got.ToReEnable, unl[0])
}

// S5: a newly-trusted validator scoring 0 is shielded from disable.
func TestFindCandidates_NewValidatorShielded(t *testing.T) {
	params := NewParams(256)
	unl := unlOf(1, 2)
	scores := ScoreTable{
		idFromByte(1): 256,
		idFromByte(2): 0,
	}
	shielded := func(id NodeID) bool { return id == idFromByte(2) }

	got := FindCandidates(params, unl, map[NodeID]bool{}, scores, shielded)
	assert.Empty(t, got.ToDisable)

	got = FindCandidates(params, unl, map[NodeID]bool{}, scores, neverShielded)
	assert.Equal(t, []NodeID{idFromByte(2)}, got.ToDisable)
}

func TestFindCandidates_TwoPhaseReEnable(t *testing.T) {
	params := NewParams(256)
	// validator 9 is listed but no longer on the UNL at all, and no
	// listed validator scored its way off this round.
	unl := unlOf(1, 2)
	nUnl := map[NodeID]bool{
		idFromByte(1): true,
		idFromByte(9): true,
	}
	scores := ScoreTable{
		idFromByte(1): 0, // still below LowWater, stays listed
		idFromByte(2): 256,
	}
	got := FindCandidates(params, unl, nUnl, scores, neverShielded)
	assert.Empty(t, got.ToDisable)
	assert.Equal(t, []NodeID{idFromByte(9)}, got.ToReEnable)
}

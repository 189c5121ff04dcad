package nunl

import "bytes"

// PickOne implements C3. Given two or more equally-eligible candidates
// (spec.md §4.3: C2 may surface more than one disable or re-enable
// candidate, but a flag ledger carries at most one of each), it selects
// the single candidate whose NodeID XORed with pad has the smallest
// unsigned value. pad is derived from the parent ledger's hash so the
// choice is unpredictable in advance but deterministic and identical
// across every honest node evaluating the same parent.
//
// PickOne panics if candidates is empty; callers must check for that
// case themselves (an empty candidate set means "nothing to vote",
// not "pick among zero options").
func PickOne(candidates []NodeID, pad NodeID) NodeID {
	if len(candidates) == 0 {
		panic("nunl: PickOne called with no candidates")
	}

	best := candidates[0]
	bestDist := xorDistance(best, pad)
	for _, nid := range candidates[1:] {
		dist := xorDistance(nid, pad)
		if bytes.Compare(dist[:], bestDist[:]) < 0 {
			best = nid
			bestDist = dist
		}
	}
	return best
}

// PadFromLedgerHash derives the XOR pad used by PickOne from a ledger
// hash, truncating it to a NodeID-sized value. Callers pass the parent
// flag ledger's hash, matching pickOneCandidate's use of the parent
// ledger hash as its random seed.
func PadFromLedgerHash(hash LedgerHash) NodeID {
	var pad NodeID
	copy(pad[:], hash[:])
	return pad
}

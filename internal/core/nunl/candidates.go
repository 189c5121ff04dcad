package nunl

// Candidates holds the output of C2: zero or more NodeIDs eligible to
// be disabled, and zero or more eligible to be re-enabled.
type Candidates struct {
	ToDisable  []NodeID
	ToReEnable []NodeID
}

// FindCandidates implements C2. unl and nextNUnl are sets of NodeID;
// newValidators reports whether a NodeID was recently trusted (and so
// is shielded from being disabled this epoch).
func FindCandidates(
	params Params,
	unl []NodeID,
	nextNUnl map[NodeID]bool,
	scores ScoreTable,
	newValidators func(NodeID) bool,
) Candidates {
	maxListed := params.MaxListed(len(unl))

	currentlyListed := 0
	for _, nid := range unl {
		if nextNUnl[nid] {
			currentlyListed++
		}
	}
	canDisable := currentlyListed < maxListed

	var out Candidates
	for _, nid := range SortNodeIDs(scoreKeys(scores)) {
		score := scores[nid]

		if canDisable &&
			score < params.LowWater &&
			!nextNUnl[nid] &&
			!newValidators(nid) {
			out.ToDisable = append(out.ToDisable, nid)
		}

		if score > params.HighWater && nextNUnl[nid] {
			out.ToReEnable = append(out.ToReEnable, nid)
		}
	}

	// Two-phase re-enable: only if no validator scored its way off the
	// list, fall back to retiring entries whose validator is no longer
	// in the UNL at all (it can never recover a score otherwise).
	if len(out.ToReEnable) == 0 {
		unlSet := make(map[NodeID]bool, len(unl))
		for _, nid := range unl {
			unlSet[nid] = true
		}
		for _, nid := range sortedKeys(nextNUnl) {
			if !unlSet[nid] {
				out.ToReEnable = append(out.ToReEnable, nid)
			}
		}
	}

	return out
}

func scoreKeys(scores ScoreTable) []NodeID {
	keys := make([]NodeID, 0, len(scores))
	for nid := range scores {
		keys = append(keys, nid)
	}
	return keys
}

func sortedKeys(set map[NodeID]bool) []NodeID {
	keys := make([]NodeID, 0, len(set))
	for nid := range set {
		keys = append(keys, nid)
	}
	return SortNodeIDs(keys)
}

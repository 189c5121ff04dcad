package nunl

import (
	"golang.org/x/sync/errgroup"
)

// ScoreTable maps each UNL member's NodeID to the number of the last
// Window accepted ledgers it validated.
type ScoreTable map[NodeID]uint32

// BuildScoreTable implements C1. It walks the F most recent ancestors
// of parent (via skipList), tallying, for every NodeID in unl, how many
// of those ancestors it validated according to store.
//
// Returns ErrInsufficientHistory if the skip-list is absent or shorter
// than params.Window. Returns ErrLocalUnderParticipation or
// ErrLocalOverParticipation if myID's own score disqualifies this node
// from voting this epoch — in both cases the caller must abstain.
func BuildScoreTable(
	params Params,
	parent LedgerHash,
	unl []NodeID,
	store ValidationStore,
	skipList SkipListReader,
	myID NodeID,
) (ScoreTable, error) {
	ancestors, err := skipList.AncestorHashes(parent)
	if err != nil {
		return nil, err
	}
	if uint32(len(ancestors)) < params.Window {
		return nil, ErrInsufficientHistory
	}

	// The F most recent ancestors are the last F entries (newest last).
	window := ancestors[uint32(len(ancestors))-params.Window:]

	unlSet := make(map[NodeID]bool, len(unl))
	for _, nid := range unl {
		unlSet[nid] = true
	}

	// Tally each ancestor's trusted-validator set concurrently; every
	// ancestor is an independent read against the validation store, so
	// bounding fan-out with errgroup lets a slow/blocking lookup for one
	// ancestor not serialize behind the others while still surfacing the
	// first error encountered.
	perAncestor := make([]map[NodeID]uint32, len(window))
	var g errgroup.Group
	for i, hash := range window {
		i, hash := i, hash
		g.Go(func() error {
			validators, err := store.TrustedValidatorsFor(hash)
			if err != nil {
				return err
			}
			local := make(map[NodeID]uint32, len(validators))
			for _, nid := range validators {
				if unlSet[nid] {
					local[nid]++
				}
			}
			perAncestor[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make(ScoreTable, len(unl))
	for _, nid := range unl {
		scores[nid] = 0
	}
	for _, local := range perAncestor {
		for nid, count := range local {
			scores[nid] += count
		}
	}

	myScore := scores[myID]
	if myScore < params.MinLocal {
		return nil, ErrLocalUnderParticipation
	}
	if myScore > params.Window {
		return nil, ErrLocalOverParticipation
	}

	return scores, nil
}

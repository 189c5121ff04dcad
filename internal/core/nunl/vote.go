package nunl

import (
	"log"
	"sync"
)

// Vote is the output of a single flag ledger's voting pass: at most one
// validator to disable and at most one to re-enable, per spec.md §4.4
// ("a flag ledger carries at most one UNLModify of each kind"). A nil
// field means "no vote of that kind this epoch". Unlike the scoring and
// candidate-selection stages, which operate on NodeID, a Vote is keyed
// by ValidatorKey: it is the shape the wire transaction needs (spec.md
// §4.4 step 3).
type Vote struct {
	Disable  *ValidatorKey
	ReEnable *ValidatorKey
}

// IsEmpty reports whether the vote carries no instructions at all.
func (v Vote) IsEmpty() bool {
	return v.Disable == nil && v.ReEnable == nil
}

// Modifications turns the vote into the C6 inputs a flag ledger's
// pseudo-transactions carry: at most one disable and one re-enable
// modification, both stamped with seq (spec.md §4.4 steps 6-7,
// "construct one disable/re-enable transaction").
func (v Vote) Modifications(seq uint32) []Modification {
	var mods []Modification
	if v.Disable != nil {
		mods = append(mods, Modification{Op: OpDisable, Seq: seq, ValidatorKey: *v.Disable})
	}
	if v.ReEnable != nil {
		mods = append(mods, Modification{Op: OpReEnable, Seq: seq, ValidatorKey: *v.ReEnable})
	}
	return mods
}

// Voter implements C4, composing C1 (BuildScoreTable), C2
// (FindCandidates), C3 (PickOne), and the new-validator shield (C5)
// into a single per-flag-ledger decision.
type Voter struct {
	Params     Params
	Store      ValidationStore
	SkipList   SkipListReader
	NewTracker *NewValidatorTracker

	// Verbose enables the trace-level watermark/candidate diagnostics
	// the original NegativeUNLVote logs at its verbose level. Off by
	// default; a running node turns it on the same way it would raise
	// any other component's log level.
	Verbose bool

	mu sync.RWMutex

	// keyOf recovers the ValidatorKey behind a NodeID once C2/C3 have
	// picked a winner, since NodeIDOf has no inverse. Seeded from every
	// ValidatorKey Decide sees, on the live UNL or the ledger's N-UNL.
	keyOf map[NodeID]ValidatorKey
}

// NewVoter constructs a Voter. tracker may be nil, in which case no
// validator is ever treated as shielded.
func NewVoter(params Params, store ValidationStore, skipList SkipListReader, tracker *NewValidatorTracker) *Voter {
	return &Voter{
		Params:     params,
		Store:      store,
		SkipList:   skipList,
		NewTracker: tracker,
		keyOf:      make(map[NodeID]ValidatorKey),
	}
}

// NoteValidatorKey records the ValidatorKey behind a NodeID and returns
// that NodeID, so the map stays fresh on every vote pass without a
// caller having to seed it separately.
func (v *Voter) NoteValidatorKey(key ValidatorKey) NodeID {
	id := NodeIDOf(key)
	v.mu.Lock()
	v.keyOf[id] = key
	v.mu.Unlock()
	return id
}

// KeyOf looks up the ValidatorKey behind a previously-noted NodeID.
func (v *Voter) KeyOf(id NodeID) (ValidatorKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.keyOf[id]
	return key, ok
}

// Decide implements doVoting: given the current UNL and the ledger's
// N-UNL membership at the parent flag ledger, it scores the measurement
// window, selects candidates, and tie-breaks down to a single vote.
//
// unl is the live trusted UNL; nUnl is the validator set currently
// listed in the ledger's N-UNL (spec.md §4.4 step 3 requires seeding
// the NodeID/ValidatorKey map from both, since a validator can be
// listed in the ledger's N-UNL after having since dropped off the live
// UNL). myKey is the local node's own validator key; if scoring
// disqualifies the local node from voting this epoch
// (ErrLocalUnderParticipation, ErrLocalOverParticipation) or history is
// insufficient (ErrInsufficientHistory), Decide returns a zero Vote and
// that error — the caller must treat any non-nil error as "abstain",
// never as a reason to retry.
func (v *Voter) Decide(parent LedgerHash, parentSeq uint32, unl []ValidatorKey, nUnl []ValidatorKey, myKey ValidatorKey) (Vote, error) {
	if v.NewTracker != nil {
		v.NewTracker.Purge(parentSeq, v.Params.NewSkip)
	}

	unlIDs := make([]NodeID, len(unl))
	for i, key := range unl {
		unlIDs[i] = v.NoteValidatorKey(key)
	}

	nextNUnl := make(map[NodeID]bool, len(nUnl))
	for _, key := range nUnl {
		nextNUnl[v.NoteValidatorKey(key)] = true
	}

	myID := v.NoteValidatorKey(myKey)

	scores, err := BuildScoreTable(v.Params, parent, unlIDs, v.Store, v.SkipList, myID)
	if err != nil {
		if v.Verbose {
			log.Printf("nunl: abstaining at seq %d: %v", parentSeq, err)
		}
		return Vote{}, err
	}

	shielded := func(NodeID) bool { return false }
	if v.NewTracker != nil {
		shielded = func(id NodeID) bool {
			return v.NewTracker.IsShielded(id, parentSeq, v.Params.NewSkip)
		}
	}

	candidates := FindCandidates(v.Params, unlIDs, nextNUnl, scores, shielded)

	if v.Verbose {
		log.Printf("nunl: seq %d lowWater=%d highWater=%d maxListed=%d disableCandidates=%d reenableCandidates=%d",
			parentSeq, v.Params.LowWater, v.Params.HighWater, v.Params.MaxListed(len(unlIDs)),
			len(candidates.ToDisable), len(candidates.ToReEnable))
	}

	pad := PadFromLedgerHash(parent)

	var vote Vote
	if len(candidates.ToDisable) > 0 {
		picked := PickOne(candidates.ToDisable, pad)
		if key, ok := v.KeyOf(picked); ok {
			vote.Disable = &key
		}
	}
	if len(candidates.ToReEnable) > 0 {
		picked := PickOne(candidates.ToReEnable, pad)
		if key, ok := v.KeyOf(picked); ok {
			vote.ReEnable = &key
		}
	}

	if v.Verbose {
		log.Printf("nunl: seq %d vote disable=%s reenable=%s", parentSeq, formatKeyPtr(vote.Disable), formatKeyPtr(vote.ReEnable))
	}

	return vote, nil
}

// formatKeyPtr renders an optional ValidatorKey for a log line without
// risking a nil dereference through the Stringer interface.
func formatKeyPtr(key *ValidatorKey) string {
	if key == nil {
		return "none"
	}
	return key.String()
}

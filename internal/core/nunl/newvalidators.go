package nunl

import "sync"

// NewValidatorTracker records, for each validator recently added to the
// local node's trusted UNL, the flag ledger sequence at which it was
// added. C2 consults it to shield a validator from being disabled for
// NewSkip ledgers after it joins, giving it time to build up a score
// before it can be judged by one (spec.md §4.2/§4.5).
type NewValidatorTracker struct {
	mu sync.RWMutex

	// addedAt maps a validator's NodeID to the flag ledger sequence at
	// which it was first noted as newly trusted.
	addedAt map[NodeID]uint32
}

// NewNewValidatorTracker returns an empty tracker.
func NewNewValidatorTracker() *NewValidatorTracker {
	return &NewValidatorTracker{addedAt: make(map[NodeID]uint32)}
}

// NoteNewlyTrusted records that id was just added to the local UNL, as
// of flag ledger seq. Re-noting an already-tracked id is a no-op: the
// original join sequence is what the skip window is measured from.
func (t *NewValidatorTracker) NoteNewlyTrusted(id NodeID, seq uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.addedAt[id]; ok {
		return
	}
	t.addedAt[id] = seq
}

// IsShielded reports whether id is still within its NewSkip shield
// window as of flag ledger seq.
func (t *NewValidatorTracker) IsShielded(id NodeID, seq uint32, skip uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addedAt, ok := t.addedAt[id]
	if !ok {
		return false
	}
	return seq-addedAt <= skip
}

// Purge drops every tracked entry whose shield window has expired as
// of flag ledger seq, so the map does not grow without bound across the
// life of the process.
func (t *NewValidatorTracker) Purge(seq uint32, skip uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, addedAt := range t.addedAt {
		if seq-addedAt > skip {
			delete(t.addedAt, id)
		}
	}
}

// Contains reports whether id has ever been noted as newly trusted and
// has not yet been purged.
func (t *NewValidatorTracker) Contains(id NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.addedAt[id]
	return ok
}

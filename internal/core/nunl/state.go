package nunl

// State is the N-UNL data carried inside ledger state (spec.md §6's
// "Ledger N-UNL fields"): the ordered set of currently-negative
// validators plus at most one pending disable and one pending
// re-enable slot, both cleared by the next flag-ledger transition.
type State struct {
	NUnl       []ValidatorKey
	ToDisable  *ValidatorKey
	ToReEnable *ValidatorKey
}

// Clone returns a deep copy, so callers can build a modified working
// copy without aliasing the original (ledger state is copy-on-write;
// spec.md §5).
func (s State) Clone() State {
	out := State{NUnl: make([]ValidatorKey, len(s.NUnl))}
	copy(out.NUnl, s.NUnl)
	if s.ToDisable != nil {
		k := *s.ToDisable
		out.ToDisable = &k
	}
	if s.ToReEnable != nil {
		k := *s.ToReEnable
		out.ToReEnable = &k
	}
	return out
}

// Contains reports whether key is currently in the N-UNL.
func (s State) Contains(key ValidatorKey) bool {
	for _, k := range s.NUnl {
		if k == key {
			return true
		}
	}
	return false
}

// Op identifies which of the two modification kinds a transaction
// carries.
type Op uint8

const (
	OpReEnable Op = 0
	OpDisable  Op = 1
)

// Modification is the C6 applier's input: a single N-UNL change
// proposed by a transaction in a flag ledger.
type Modification struct {
	Op           Op
	Seq          uint32
	ValidatorKey ValidatorKey
}

// RejectReason names why C6 permanently rejected a modification
// (spec.md §4.6's condition table / §7's TransactionRejected kind).
type RejectReason string

const (
	RejectNonFlagLedger  RejectReason = "non-flag ledger"
	RejectSlotOccupied   RejectReason = "slot occupied"
	RejectConflict       RejectReason = "conflict"
	RejectAlreadyListed  RejectReason = "already listed"
	RejectNotListed      RejectReason = "not listed"
)

// ApplyModification implements C6. ledgerSeq is the sequence of the
// ledger the modification is being applied within; window is F (used
// to check the flag-ledger condition). On success it returns the
// updated state with the corresponding slot set; the caller commits
// that state to the open ledger view. On rejection it returns the
// original state unchanged, the reason, and ok=false — the caller must
// not apply the transaction and must count it as failed (spec.md §7).
func ApplyModification(state State, mod Modification, window uint32) (State, RejectReason, bool) {
	if window == 0 || mod.Seq%window != 0 {
		return state, RejectNonFlagLedger, false
	}

	switch mod.Op {
	case OpDisable:
		if state.ToDisable != nil {
			return state, RejectSlotOccupied, false
		}
		if state.ToReEnable != nil && *state.ToReEnable == mod.ValidatorKey {
			return state, RejectConflict, false
		}
		if state.Contains(mod.ValidatorKey) {
			return state, RejectAlreadyListed, false
		}
		next := state.Clone()
		key := mod.ValidatorKey
		next.ToDisable = &key
		return next, "", true

	case OpReEnable:
		if state.ToReEnable != nil {
			return state, RejectSlotOccupied, false
		}
		if state.ToDisable != nil && *state.ToDisable == mod.ValidatorKey {
			return state, RejectConflict, false
		}
		if !state.Contains(mod.ValidatorKey) {
			return state, RejectNotListed, false
		}
		next := state.Clone()
		key := mod.ValidatorKey
		next.ToReEnable = &key
		return next, "", true

	default:
		return state, RejectNonFlagLedger, false
	}
}

// ApplyFlagTransition implements C7: invoked once per flag ledger,
// after all ordinary transactions have been applied, against the new
// ledger's copied N-UNL state. It is idempotent — with both slots
// already clear it returns state unchanged.
func ApplyFlagTransition(state State) State {
	next := state.Clone()

	if next.ToDisable != nil {
		next.NUnl = append(next.NUnl, *next.ToDisable)
		next.ToDisable = nil
	}

	if next.ToReEnable != nil {
		filtered := next.NUnl[:0:0]
		for _, k := range next.NUnl {
			if k != *next.ToReEnable {
				filtered = append(filtered, k)
			}
		}
		next.NUnl = filtered
		next.ToReEnable = nil
	}

	return next
}

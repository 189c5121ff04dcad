package entry

import (
	"encoding/binary"
	"fmt"

	"github.com/xrplf/nunld/internal/core/ledger/entry"
	"github.com/xrplf/nunld/internal/core/nunl"
)

// DisabledValidator represents a validator that has been disabled, and
// the flag ledger sequence at which it joined the N-UNL (kept for
// diagnostics/tooling; the voting logic itself only needs the key).
type DisabledValidator struct {
	PublicKey      [33]byte // Validator's public key
	FirstLedgerSeq uint32   // Ledger sequence when disabled
}

// NegativeUNL represents the Negative Unique Node List ledger entry.
// This is a singleton object - only one exists in the ledger.
// Reference: rippled/include/xrpl/protocol/detail/ledger_entries.macro ltNEGATIVE_UNL
type NegativeUNL struct {
	BaseEntry

	// Optional fields (all are optional for this singleton)
	DisabledValidators  []DisabledValidator // List of disabled validators
	ValidatorToDisable  *[33]byte           // Validator being voted to disable
	ValidatorToReEnable *[33]byte           // Validator being voted to re-enable
}

func (n *NegativeUNL) Type() entry.Type {
	return entry.TypeNegativeUNL
}

func (n *NegativeUNL) Validate() error {
	// NegativeUNL is a singleton with all optional fields
	return nil
}

func (n *NegativeUNL) Hash() ([32]byte, error) {
	return n.BaseEntry.Hash(), nil
}

// Contains reports whether key is currently listed.
func (n *NegativeUNL) Contains(key [33]byte) bool {
	for _, d := range n.DisabledValidators {
		if d.PublicKey == key {
			return true
		}
	}
	return false
}

// ToState converts the wire/ledger representation into the pure value
// the voting core (internal/core/nunl) operates on. seq is the flag
// ledger sequence this N-UNL entry is being read as of, used to stamp
// any newly-inserted key during the next ApplyFlagTransition call.
func (n *NegativeUNL) ToState() nunl.State {
	state := nunl.State{NUnl: make([]nunl.ValidatorKey, 0, len(n.DisabledValidators))}
	for _, d := range n.DisabledValidators {
		state.NUnl = append(state.NUnl, nunl.ValidatorKey(d.PublicKey))
	}
	if n.ValidatorToDisable != nil {
		k := nunl.ValidatorKey(*n.ValidatorToDisable)
		state.ToDisable = &k
	}
	if n.ValidatorToReEnable != nil {
		k := nunl.ValidatorKey(*n.ValidatorToReEnable)
		state.ToReEnable = &k
	}
	return state
}

// LoadFromState overwrites n's fields from state, stamping any newly
// listed key (one present in state.NUnl but not yet tracked here) with
// joinedAt as its FirstLedgerSeq.
func (n *NegativeUNL) LoadFromState(state nunl.State, joinedAt uint32) {
	existing := make(map[[33]byte]uint32, len(n.DisabledValidators))
	for _, d := range n.DisabledValidators {
		existing[d.PublicKey] = d.FirstLedgerSeq
	}

	n.DisabledValidators = n.DisabledValidators[:0]
	for _, key := range state.NUnl {
		raw := [33]byte(key)
		firstSeq, ok := existing[raw]
		if !ok {
			firstSeq = joinedAt
		}
		n.DisabledValidators = append(n.DisabledValidators, DisabledValidator{
			PublicKey:      raw,
			FirstLedgerSeq: firstSeq,
		})
	}

	n.ValidatorToDisable = nil
	if state.ToDisable != nil {
		raw := [33]byte(*state.ToDisable)
		n.ValidatorToDisable = &raw
	}

	n.ValidatorToReEnable = nil
	if state.ToReEnable != nil {
		raw := [33]byte(*state.ToReEnable)
		n.ValidatorToReEnable = &raw
	}
}

// Encode serializes n using the wire format of spec.md §6's "Ledger
// N-UNL fields": nUnl as a length-prefixed list of (33-byte key,
// 4-byte FirstLedgerSeq) pairs, followed by an optional-presence byte
// and 33-byte key for each of toDisable and toReEnable.
func (n *NegativeUNL) Encode() []byte {
	buf := make([]byte, 0, 4+len(n.DisabledValidators)*37+2*34)

	var countBytes [4]byte
	binary.BigEndian.PutUint32(countBytes[:], uint32(len(n.DisabledValidators)))
	buf = append(buf, countBytes[:]...)
	for _, d := range n.DisabledValidators {
		buf = append(buf, d.PublicKey[:]...)
		var seqBytes [4]byte
		binary.BigEndian.PutUint32(seqBytes[:], d.FirstLedgerSeq)
		buf = append(buf, seqBytes[:]...)
	}

	buf = appendOptionalKey(buf, n.ValidatorToDisable)
	buf = appendOptionalKey(buf, n.ValidatorToReEnable)

	return buf
}

func appendOptionalKey(buf []byte, key *[33]byte) []byte {
	if key == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, key[:]...)
}

// DecodeNegativeUNL parses the wire format written by Encode.
func DecodeNegativeUNL(data []byte) (*NegativeUNL, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("negative UNL: truncated count prefix")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]

	n := &NegativeUNL{DisabledValidators: make([]DisabledValidator, 0, count)}
	for i := uint32(0); i < count; i++ {
		if len(data) < 37 {
			return nil, fmt.Errorf("negative UNL: truncated entry %d", i)
		}
		var d DisabledValidator
		copy(d.PublicKey[:], data[:33])
		d.FirstLedgerSeq = binary.BigEndian.Uint32(data[33:37])
		n.DisabledValidators = append(n.DisabledValidators, d)
		data = data[37:]
	}

	var err error
	n.ValidatorToDisable, data, err = readOptionalKey(data)
	if err != nil {
		return nil, err
	}
	n.ValidatorToReEnable, _, err = readOptionalKey(data)
	if err != nil {
		return nil, err
	}

	return n, nil
}

func readOptionalKey(data []byte) (*[33]byte, []byte, error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("negative UNL: truncated presence byte")
	}
	present, data := data[0], data[1:]
	if present == 0 {
		return nil, data, nil
	}
	if len(data) < 33 {
		return nil, nil, fmt.Errorf("negative UNL: truncated optional key")
	}
	var key [33]byte
	copy(key[:], data[:33])
	return &key, data[33:], nil
}

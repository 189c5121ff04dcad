package nunl

import (
	"bytes"
	"encoding/hex"
	"sort"

	crypto "github.com/xrplf/nunld/internal/crypto"
)

// NodeID is the 160-bit fingerprint of a validator's master public key,
// computed the same way account IDs are: RIPEMD160(SHA256(pubkey)).
type NodeID [crypto.NodeIDSize]byte

// ValidatorKey is a validator's master public key, as carried on the
// wire and in ledger state. XRPL public keys are 33 bytes (a one-byte
// type prefix followed by the compressed key material) for both the
// secp256k1 and ed25519 key types in use on the network.
type ValidatorKey [33]byte

// NodeIDOf derives the NodeID for a validator key.
func NodeIDOf(key ValidatorKey) NodeID {
	return NodeID(crypto.CalcNodeID(key[:]))
}

// Less reports whether n sorts before other, lexicographically on the
// raw bytes (spec: "Ordering of NodeIDs is lexicographic on the raw
// bytes").
func (n NodeID) Less(other NodeID) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

// String returns the hex encoding of the NodeID.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}

// String returns the hex encoding of the ValidatorKey.
func (v ValidatorKey) String() string {
	return hex.EncodeToString(v[:])
}

// xorDistance returns n XOR pad, interpreted as an unsigned big-endian
// integer for ordering purposes, as a byte array so callers can compare
// two distances with bytes.Compare without allocating a big.Int.
func xorDistance(n, pad NodeID) [crypto.NodeIDSize]byte {
	var out [crypto.NodeIDSize]byte
	for i := range n {
		out[i] = n[i] ^ pad[i]
	}
	return out
}

// SortNodeIDs returns a new, ascending-sorted copy of ids. Several
// components (score table iteration, candidate set construction) must
// iterate in a fixed order to keep C4's output byte-identical across
// independent honest nodes given identical inputs.
func SortNodeIDs(ids []NodeID) []NodeID {
	out := make([]NodeID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

package nunl

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LedgerHash is a 256-bit content hash of a ledger.
type LedgerHash [32]byte

// ValidationStore answers "which trusted validators validated the
// ledger with this hash?" for any hash. It is read-only from the
// voter's perspective (spec.md §5) and guarantees at most one
// validation per (validator, ledger).
type ValidationStore interface {
	TrustedValidatorsFor(hash LedgerHash) ([]NodeID, error)
}

// SkipListReader exposes a ledger's recent-ancestor hash list, newest
// last, as required to walk the measurement window backwards from a
// parent ledger (spec.md §6's "Skip-list reader" consumer contract).
type SkipListReader interface {
	AncestorHashes(parent LedgerHash) ([]LedgerHash, error)
}

// CachingValidationStore wraps a ValidationStore with a bounded LRU
// cache of recent lookups, so repeated scoring passes over the same
// trailing window (which happens every flag ledger, against mostly the
// same set of recent hashes as the previous pass) do not re-walk the
// underlying store. Bounded to 2*window entries: generous enough to
// cover a full measurement window plus slack without growing without
// bound.
type CachingValidationStore struct {
	underlying ValidationStore
	cache      *lru.Cache[LedgerHash, []NodeID]
}

// NewCachingValidationStore creates a cache in front of underlying,
// sized to comfortably hold one measurement window's worth of lookups.
func NewCachingValidationStore(underlying ValidationStore, window uint32) (*CachingValidationStore, error) {
	size := int(2 * window)
	if size <= 0 {
		size = 2 * DefaultFlagLedgerInterval
	}
	cache, err := lru.New[LedgerHash, []NodeID](size)
	if err != nil {
		return nil, err
	}
	return &CachingValidationStore{underlying: underlying, cache: cache}, nil
}

// TrustedValidatorsFor implements ValidationStore, consulting the cache
// before falling through to the underlying store.
func (c *CachingValidationStore) TrustedValidatorsFor(hash LedgerHash) ([]NodeID, error) {
	if ids, ok := c.cache.Get(hash); ok {
		return ids, nil
	}
	ids, err := c.underlying.TrustedValidatorsFor(hash)
	if err != nil {
		return nil, err
	}
	c.cache.Add(hash, ids)
	return ids, nil
}

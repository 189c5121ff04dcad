package nunl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	calls  int
	result []NodeID
	err    error
}

func (c *countingStore) TrustedValidatorsFor(LedgerHash) ([]NodeID, error) {
	c.calls++
	return c.result, c.err
}

func TestCachingValidationStore_CachesHits(t *testing.T) {
	underlying := &countingStore{result: unlOf(1, 2)}
	cache, err := NewCachingValidationStore(underlying, 4)
	require.NoError(t, err)

	hash := hashOf(1)
	first, err := cache.TrustedValidatorsFor(hash)
	require.NoError(t, err)
	second, err := cache.TrustedValidatorsFor(hash)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, underlying.calls, "second lookup should be served from cache")
}

func TestCachingValidationStore_DistinctHashesMiss(t *testing.T) {
	underlying := &countingStore{result: unlOf(1)}
	cache, err := NewCachingValidationStore(underlying, 4)
	require.NoError(t, err)

	_, _ = cache.TrustedValidatorsFor(hashOf(1))
	_, _ = cache.TrustedValidatorsFor(hashOf(2))

	assert.Equal(t, 2, underlying.calls)
}

func TestCachingValidationStore_PropagatesErrorWithoutCaching(t *testing.T) {
	boom := errors.New("boom")
	underlying := &countingStore{err: boom}
	cache, err := NewCachingValidationStore(underlying, 4)
	require.NoError(t, err)

	_, err = cache.TrustedValidatorsFor(hashOf(1))
	assert.ErrorIs(t, err, boom)
	_, err = cache.TrustedValidatorsFor(hashOf(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, underlying.calls, "a failed lookup must not be cached")
}

func TestNewCachingValidationStore_ZeroWindowUsesDefault(t *testing.T) {
	cache, err := NewCachingValidationStore(&countingStore{}, 0)
	require.NoError(t, err)
	assert.NotNil(t, cache)
}

package nunl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams_MatchesProtocolConstants(t *testing.T) {
	p := NewParams(256)
	assert.Equal(t, uint32(256), p.Window)
	assert.Equal(t, uint32(128), p.LowWater)
	assert.Equal(t, uint32(204), p.HighWater)
	assert.Equal(t, uint32(230), p.MinLocal)
	assert.Equal(t, uint32(512), p.NewSkip)
	assert.InDelta(t, 0.25, p.MaxListedFrac, 1e-9)
}

func TestDefaultParams(t *testing.T) {
	assert.Equal(t, NewParams(DefaultFlagLedgerInterval), DefaultParams())
}

func TestParams_IsFlagLedger(t *testing.T) {
	p := DefaultParams()
	assert.True(t, p.IsFlagLedger(256))
	assert.True(t, p.IsFlagLedger(512))
	assert.False(t, p.IsFlagLedger(255))
	assert.False(t, p.IsFlagLedger(0))

	zero := Params{}
	assert.False(t, zero.IsFlagLedger(256))
}

func TestParams_MaxListed(t *testing.T) {
	p := DefaultParams()
	// spec.md S4: |UNL|=32 -> maxListed = 8
	assert.Equal(t, 8, p.MaxListed(32))
	// ceil(47*0.25) = 12
	assert.Equal(t, 12, p.MaxListed(47))
	assert.Equal(t, 0, p.MaxListed(0))
}

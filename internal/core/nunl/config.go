package nunl

import "math"

// DefaultFlagLedgerInterval is the historical rippled constant: one
// measurement epoch spans 256 ledgers.
const DefaultFlagLedgerInterval = 256

// Params holds the configuration constants of spec.md §3, all derived
// from a single measurement-window size F. A network fixes F once;
// every other threshold below is computed from it, matching the ratios
// rippled hardcodes for F=256 (128/256, 204/256, 230/256, 512, 0.25).
type Params struct {
	// Window is F: the number of ledgers per measurement epoch. A flag
	// ledger is one whose sequence is a multiple of Window.
	Window uint32

	// LowWater: below this score a validator is a disable candidate.
	LowWater uint32

	// HighWater: above this score a listed validator is a re-enable
	// candidate.
	HighWater uint32

	// MinLocal: minimum own validation count required to vote at all.
	MinLocal uint32

	// NewSkip: a newly-trusted validator is shielded from disable for
	// this many ledgers.
	NewSkip uint32

	// MaxListedFrac: the N-UNL may not exceed this fraction of the UNL.
	MaxListedFrac float64
}

// NewParams builds a Params from a window size, computing the derived
// thresholds per spec.md §3's formulas.
func NewParams(window uint32) Params {
	f := float64(window)
	return Params{
		Window:        window,
		LowWater:      uint32(math.Floor(f * 0.5)),
		HighWater:     uint32(math.Floor(f * 0.8)),
		MinLocal:      uint32(math.Ceil(f * 0.9)),
		NewSkip:       2 * window,
		MaxListedFrac: 0.25,
	}
}

// DefaultParams returns the Params for the default 256-ledger window.
func DefaultParams() Params {
	return NewParams(DefaultFlagLedgerInterval)
}

// IsFlagLedger reports whether seq is a flag ledger under this window.
func (p Params) IsFlagLedger(seq uint32) bool {
	return p.Window != 0 && seq%p.Window == 0
}

// MaxListed returns ⌈|UNL| · MaxListedFrac⌉ for the given UNL size.
func (p Params) MaxListed(unlSize int) int {
	return int(math.Ceil(float64(unlSize) * p.MaxListedFrac))
}

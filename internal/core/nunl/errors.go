package nunl

import "errors"

// Error kinds of spec.md §7. Voting never retries on any of these; the
// voter simply abstains for the epoch.
var (
	// ErrInsufficientHistory is returned when the skip-list is absent or
	// shorter than the measurement window.
	ErrInsufficientHistory = errors.New("nunl: insufficient ledger history to score validators")

	// ErrLocalUnderParticipation is returned when the local node's own
	// score is below MinLocal.
	ErrLocalUnderParticipation = errors.New("nunl: local validation count below minimum to vote")

	// ErrLocalOverParticipation is returned when the local node's score
	// exceeds the window size — a validation-store bug, never expected.
	ErrLocalOverParticipation = errors.New("nunl: local validation count exceeds window size")
)

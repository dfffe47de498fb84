package challenge

import "errors"

// Sentinel kinds for challenge errors.
var (
	// ErrMissingConfig marks a challenge definition lacking a required
	// step_count or starting_block. Silently defaulting would corrupt
	// reward accounting, so this surfaces as fatal at startup.
	ErrMissingConfig = errors.New("challenge definition missing required field")

	ErrUnknownChallenge = errors.New("unknown challenge id")
)

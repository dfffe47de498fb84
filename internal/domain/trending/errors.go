package trending

import "errors"

// Sentinel kinds for trending errors.
var (
	ErrUnknownVersion = errors.New("unknown strategy version")
	ErrInvalidRequest = errors.New("invalid trending request")
)

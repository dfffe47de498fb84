package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("row not found")
	ErrStore    = errors.New("store operation failed")
)

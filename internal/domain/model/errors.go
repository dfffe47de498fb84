package model

import "errors"

// Sentinel kinds for model errors. These allow errors.Is/As from callers.
var (
	ErrInvalidEvent   = errors.New("invalid event")
	ErrCorruptPayload = errors.New("corrupt event payload")
)

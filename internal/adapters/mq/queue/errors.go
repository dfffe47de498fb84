package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrAppend = errors.New("queue append failed")
	ErrRead   = errors.New("queue read failed")
	ErrTrim   = errors.New("queue trim failed")
)

package relay

import "errors"

var (
	ErrAlreadyStarted  = errors.New("relay listener already started")
	ErrShutdownTimeout = errors.New("relay listener did not stop within the shutdown timeout")
)

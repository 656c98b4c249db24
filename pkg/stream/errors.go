package stream

import "errors"

var (
	ErrStreamClosed       = errors.New("stream closed")
	ErrFlusherUnsupported = errors.New("response writer does not support flushing")
)

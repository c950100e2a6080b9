package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrMalformedEvent   = fmt.Errorf("malformed event payload")
	ErrSinkFull         = fmt.Errorf("connection buffer full")
	ErrSinkClosed       = fmt.Errorf("connection sink closed")
	ErrInvalidToken     = fmt.Errorf("invalid or expired token")
)

package query

import "errors"

var (
	// ErrCanceled is returned to readers of a fetch aborted by Cancel or Remove.
	ErrCanceled = errors.New("query canceled")
	// ErrTimeout wraps the fetch error when Options.Timeout expires.
	ErrTimeout = errors.New("query timed out")
	ErrClosed  = errors.New("query client closed")
	// ErrUnexpectedType is returned by Get when cached data has another type.
	ErrUnexpectedType = errors.New("unexpected cached data type")
)

package domain

import "errors"

// Store-level error kinds.
var (
	// ErrNoRows is returned by a fetch that matched nothing. It is not a failure.
	ErrNoRows           = errors.New("no rows")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreWrite       = errors.New("store write failed")
)

// Pipeline stage error kinds.
var (
	ErrNoMessages          = errors.New("no messages for date")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrPersistenceFailed   = errors.New("persistence failed")
	ErrDelivery            = errors.New("delivery failed")
)

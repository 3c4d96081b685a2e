package model

import "errors"

var (
	// ErrTransport marks a failed call to the remote API: network errors and
	// non-success HTTP statuses.
	ErrTransport = errors.New("transport error")

	// ErrParse marks a remote API response whose body could not be decoded.
	// Errors wrapping ErrParse also wrap ErrTransport.
	ErrParse = errors.New("parse error")

	// ErrPartialFetch marks a change that could not be assembled because the
	// changed-files or author-email fetch failed.
	ErrPartialFetch = errors.New("partial fetch failure")

	// ErrPollCycle marks a poll cycle that could not list pull requests.
	ErrPollCycle = errors.New("poll cycle failure")

	// ErrInvalidConfig marks a poller configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid poller configuration")
)

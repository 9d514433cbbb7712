package repository

import "errors"

var (
	// ErrIntakeDrained is returned by an intake once it has no more URLs.
	ErrIntakeDrained = errors.New("intake drained")
	// ErrStopRun is returned by a sink to request that the run stop early.
	ErrStopRun = errors.New("sink requested stop")

	// ErrMalformedRequest marks a probe that can never succeed: the target
	// cannot be turned into a valid HEAD request.
	ErrMalformedRequest = errors.New("malformed probe request")
	// ErrTooManyRedirects marks a redirect chain longer than the hop cap.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrTransport marks a transient transport failure (dial, reset, DNS, timeout).
	ErrTransport = errors.New("transport error")
	// ErrRetriesExhausted wraps the last transport error once every attempt failed.
	ErrRetriesExhausted = errors.New("all probe attempts failed")
)

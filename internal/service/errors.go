package service

import "errors"

// Failures surface through a closed taxonomy so the transport layer can
// map each class to a single, documented status code.
var (
	// ErrInvalidInput marks caller-supplied data the services cannot use.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream marks a failure of the hosted model or another remote collaborator.
	ErrUpstream = errors.New("upstream service failure")
	// ErrEncoding marks a failure while encoding an export artifact.
	ErrEncoding = errors.New("encoding failure")
)

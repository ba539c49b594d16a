package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrMalformedEvent   = errors.New("domain: malformed event")
	ErrMalformedMapping = errors.New("domain: malformed session mapping")
)

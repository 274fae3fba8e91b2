package errs

import "errors"

// Error taxonomy shared across the pipeline, search, and client layers.
// Callers classify with errors.Is; handlers map these onto HTTP classes.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream model or transport unavailable")
	ErrMalformedResponse   = errors.New("malformed model response")
	ErrAlreadyRunning      = errors.New("execution already running")
)

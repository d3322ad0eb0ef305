package lifecycle

import "errors"

// Error categories surfaced to the transport layer. Handlers map these
// to status codes with errors.Is; everything else is an internal error.
var (
	ErrValidation   = errors.New("invalid request")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("session not found")
	ErrGeneration   = errors.New("script generation failed")
	ErrSynthesis    = errors.New("audio synthesis failed")
	ErrStorage      = errors.New("storage failure")
	ErrTimeout      = errors.New("generation timed out")
)

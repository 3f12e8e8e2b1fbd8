package lighting

import "errors"

var (
	// ErrNotInitialized is returned by operations on an orchestrator that
	// was never constructed with an event sender.
	ErrNotInitialized = errors.New("lighting: orchestrator not initialized")

	// ErrInvalidRequest is returned for malformed fade requests.
	ErrInvalidRequest = errors.New("lighting: invalid fade request")
)

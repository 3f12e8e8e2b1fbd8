package station

import "errors"

// Sentinel errors returned by the station package.
// Use errors.Is to check for them.
var (
	// ErrInvalidSetting indicates a settings write carried a value that
	// cannot be parsed (range problems clamp instead).
	ErrInvalidSetting = errors.New("station: invalid setting")

	// ErrNotRunning indicates an operation that needs the supervisor's
	// goroutines, called before Run or after shutdown.
	ErrNotRunning = errors.New("station: not running")

	// ErrNoScenes indicates an operation that needs at least one
	// catalogue entry ran against an empty catalogue.
	ErrNoScenes = errors.New("station: no scenes")
)

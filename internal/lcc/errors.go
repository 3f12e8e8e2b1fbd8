package lcc

import "errors"

// Domain-specific errors for LCC transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotReady is returned when an event send is attempted before the
	// client has completed its alias check-in, or while disconnected.
	ErrNotReady = errors.New("lcc: transport not ready")

	// ErrConnectionFailed is returned when the hub connection cannot be
	// established.
	ErrConnectionFailed = errors.New("lcc: connection failed")

	// ErrClosed is returned for operations on a closed client.
	ErrClosed = errors.New("lcc: client closed")

	// ErrSendFailed is returned when writing a frame to the hub fails.
	ErrSendFailed = errors.New("lcc: send failed")

	// ErrInvalidEventID is returned when an event id string cannot be parsed.
	ErrInvalidEventID = errors.New("lcc: invalid event id")

	// ErrInvalidNodeID is returned when a node id is malformed, zero, or
	// wider than 48 bits.
	ErrInvalidNodeID = errors.New("lcc: invalid node id")

	// ErrInvalidFrame is returned when an inbound GridConnect frame is
	// malformed.
	ErrInvalidFrame = errors.New("lcc: invalid gridconnect frame")

	// ErrAliasExhausted is returned when alias check-in keeps colliding and
	// the attempt budget runs out.
	ErrAliasExhausted = errors.New("lcc: could not reserve a bus alias")
)

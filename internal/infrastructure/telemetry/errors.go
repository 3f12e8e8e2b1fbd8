package telemetry

import "errors"

// Sentinel errors for telemetry operations, checked with errors.Is.
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("telemetry: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrWriteFailed indicates a write operation failed.
	// Most write errors arrive asynchronously via the error callback.
	ErrWriteFailed = errors.New("telemetry: write failed")

	// ErrDisabled indicates telemetry is disabled in configuration.
	ErrDisabled = errors.New("telemetry: disabled in configuration")
)

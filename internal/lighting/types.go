package lighting

import (
	"encoding/json"
	"fmt"
	"time"
)

// LightingState holds the five independent 8-bit channels of the lighting
// network. Brightness is a peer channel, not a multiplier; receivers apply
// it as hardware intensity. Value type, copied across boundaries.
type LightingState struct {
	Red        uint8 `json:"red"`
	Green      uint8 `json:"green"`
	Blue       uint8 `json:"blue"`
	White      uint8 `json:"white"`
	Brightness uint8 `json:"brightness"`
}

// String renders the state for logging.
func (s LightingState) String() string {
	return fmt.Sprintf("r=%d g=%d b=%d w=%d bri=%d", s.Red, s.Green, s.Blue, s.White, s.Brightness)
}

// FadeRequest asks for a transition to a target state over a total
// duration. Duration 0 means apply immediately, with no receiver-side
// interpolation. Durations beyond the 255-second single-segment bus limit
// are split into multiple segments.
type FadeRequest struct {
	Target   LightingState
	Duration time.Duration
}

// FadeState is the orchestrator's lifecycle state.
type FadeState int

const (
	// StateIdle means no fade session is in flight.
	StateIdle FadeState = iota

	// StateFading means segments of an active session are being driven.
	StateFading

	// StateComplete is held for exactly one tick after the final segment
	// elapses, so progress consumers can observe "100%, then idle".
	StateComplete
)

// String returns the lowercase state name used in logs and API payloads.
func (s FadeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFading:
		return "fading"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalJSON renders the state as its lowercase name.
func (s FadeState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// FadeProgress is a point-in-time snapshot of the active session.
//
// Percent derives from wall-clock elapsed time over total duration, not
// from the segment index, so it is continuous and monotonically
// non-decreasing across segment boundaries. It reads exactly 100 only in
// StateComplete and 0 in StateIdle.
type FadeProgress struct {
	State        FadeState     `json:"state"`
	Percent      int           `json:"percent"`
	Elapsed      time.Duration `json:"elapsed"`
	Total        time.Duration `json:"total"`
	SegmentIndex int           `json:"segment_index"`
	SegmentCount int           `json:"segment_count"`
}

package display

import (
	"fmt"
	"time"
)

// RenderOp identifies one of the closed set of operations the power
// machine asks the rendering context to perform. The set is fixed and
// small; consumers switch over it rather than registering callbacks.
type RenderOp int

const (
	// RenderFadeOut animates the dimming overlay from transparent to
	// opaque over the command's duration in the given number of discrete
	// steps. Discrete steps avoid visible banding on partial-refresh
	// panels.
	RenderFadeOut RenderOp = iota

	// RenderFadeIn animates the overlay from opaque back to transparent
	// and removes it. Used when power was never cut (wake during fade-out).
	RenderFadeIn

	// RenderPowerOff cuts panel power after the overlay is fully opaque.
	RenderPowerOff

	// RenderWake restores panel power and then runs the fade-in
	// animation. Used when waking from Off.
	RenderWake
)

// String returns the snake_case op name used in logs and wire payloads.
func (op RenderOp) String() string {
	switch op {
	case RenderFadeOut:
		return "fade_out"
	case RenderFadeIn:
		return "fade_in"
	case RenderPowerOff:
		return "power_off"
	case RenderWake:
		return "wake"
	default:
		return fmt.Sprintf("render_op(%d)", int(op))
	}
}

// RenderCommand is one marshaled request to the rendering context. Render
// mutations happen only inside that context's own turn; the power machine
// never touches rendering state directly.
type RenderCommand struct {
	Op RenderOp

	// Duration and Steps parameterize the fade animations; zero for the
	// power ops.
	Duration time.Duration
	Steps    int
}

package display

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// PowerState is the backlight lifecycle state.
type PowerState int

const (
	// StateActive: full brightness, idle timer running, input interactive.
	StateActive PowerState = iota

	// StateFadingOut: dimming overlay ramping opaque; input latches
	// pendingWake instead of being delivered.
	StateFadingOut

	// StateOff: panel power cut.
	StateOff

	// StateFadingIn: power restored, overlay ramping transparent.
	StateFadingIn
)

// String returns the snake_case state name used in logs and API payloads.
func (s PowerState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFadingOut:
		return "fading_out"
	case StateOff:
		return "off"
	case StateFadingIn:
		return "fading_in"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Idle timeout bounds and animation defaults.
const (
	// MinIdleTimeout and MaxIdleTimeout bound nonzero timeouts; zero
	// disables the timer entirely.
	MinIdleTimeout = 10 * time.Second
	MaxIdleTimeout = 3600 * time.Second

	// DefaultIdleTimeout applies when nothing is configured.
	DefaultIdleTimeout = 60 * time.Second

	defaultFadeDuration = time.Second
	defaultFadeSteps    = 20

	// defaultHandoffWait bounds how long a tick waits to hand a command
	// to the rendering context before skipping.
	defaultHandoffWait = 5 * time.Millisecond

	renderQueueSize = 8
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Controller.
type Options struct {
	// IdleTimeout is the inactivity span before the display sleeps.
	// Zero disables the timer; nonzero values clamp to
	// [MinIdleTimeout, MaxIdleTimeout].
	IdleTimeout time.Duration

	// FadeDuration is the overlay ramp length. Default 1s.
	FadeDuration time.Duration

	// FadeSteps is the number of discrete opacity steps. Default 20.
	FadeSteps int

	// HandoffWait bounds the render-queue handoff per tick. Default 5ms.
	HandoffWait time.Duration

	// Logger is optional.
	Logger Logger
}

// Status is a point-in-time snapshot for API and broadcast consumers.
type Status struct {
	State       PowerState
	Interactive bool
	ScreenOn    bool
	PendingWake bool
	IdleTimeout time.Duration
}

// Controller is the display power state machine: Active → FadingOut → Off
// → FadingIn → Active, with the activity shortcuts FadingOut→FadingIn and
// Off→FadingIn. The idle timer is evaluated only in Active.
//
// Render mutations are marshaled to the owning rendering context as
// RenderCommands over a bounded queue; a tick that cannot hand off within
// the configured wait skips and retries on the next tick.
//
// Thread Safety:
//   - Tick, NotifyActivity, Sleep, and all accessors are safe to call
//     concurrently. One mutex guards the machine; it is never shared with
//     the lighting subsystem.
type Controller struct {
	mu           sync.Mutex
	state        PowerState
	idleTimeout  time.Duration
	lastActivity time.Time

	// pendingWake latches activity seen during FadingOut/Off. Servicing
	// requires the privileged tick, and the latch only ever moves the
	// machine toward Active.
	pendingWake bool

	// sleepRequested makes the next Active tick take the ordinary
	// timeout path immediately. Cleared by activity.
	sleepRequested bool

	rampStart    time.Time
	fadeDuration time.Duration
	fadeSteps    int

	renderQ     chan RenderCommand
	handoffWait time.Duration

	timeoutSleeps   atomic.Uint64
	manualSleeps    atomic.Uint64
	wakes           atomic.Uint64
	skippedHandoffs atomic.Uint64

	logger Logger

	now func() time.Time
}

// NewController builds a Controller in StateActive with the idle timer
// freshly reset.
func NewController(opts Options) *Controller {
	if opts.FadeDuration <= 0 {
		opts.FadeDuration = defaultFadeDuration
	}
	if opts.FadeSteps <= 0 {
		opts.FadeSteps = defaultFadeSteps
	}
	if opts.HandoffWait <= 0 {
		opts.HandoffWait = defaultHandoffWait
	}

	c := &Controller{
		state:        StateActive,
		idleTimeout:  clampIdleTimeout(opts.IdleTimeout),
		fadeDuration: opts.FadeDuration,
		fadeSteps:    opts.FadeSteps,
		renderQ:      make(chan RenderCommand, renderQueueSize),
		handoffWait:  opts.HandoffWait,
		logger:       opts.Logger,
		now:          time.Now,
	}
	c.lastActivity = c.now()
	return c
}

// Render exposes the command queue to the owning rendering context. The
// consumer drains it on its own turn and executes each command exactly
// once.
func (c *Controller) Render() <-chan RenderCommand {
	return c.renderQ
}

// Tick evaluates timers and ramp completion. Call it on a coarse fixed
// period; the timeout resolution is seconds, so hundreds of milliseconds
// between ticks is adequate.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	switch c.state {
	case StateActive:
		expired := c.idleTimeout > 0 && now.Sub(c.lastActivity) >= c.idleTimeout
		if !c.sleepRequested && !expired {
			return
		}
		if !c.enqueueRender(RenderCommand{Op: RenderFadeOut, Duration: c.fadeDuration, Steps: c.fadeSteps}) {
			return // skip this tick, retry next
		}
		if c.sleepRequested {
			c.manualSleeps.Add(1)
		} else {
			c.timeoutSleeps.Add(1)
		}
		c.sleepRequested = false
		c.pendingWake = false
		c.state = StateFadingOut
		c.rampStart = now
		c.logInfo("display fading out")

	case StateFadingOut:
		if now.Sub(c.rampStart) < c.fadeDuration {
			return
		}
		if c.pendingWake {
			// Activity arrived mid-ramp: reverse without cutting power.
			if !c.enqueueRender(RenderCommand{Op: RenderFadeIn, Duration: c.fadeDuration, Steps: c.fadeSteps}) {
				return
			}
			c.pendingWake = false
			c.state = StateFadingIn
			c.rampStart = now
			c.wakes.Add(1)
			c.logInfo("display waking before power cut")
			return
		}
		if !c.enqueueRender(RenderCommand{Op: RenderPowerOff}) {
			return
		}
		c.state = StateOff
		c.logInfo("display off")

	case StateOff:
		if !c.pendingWake {
			return
		}
		if !c.enqueueRender(RenderCommand{Op: RenderWake, Duration: c.fadeDuration, Steps: c.fadeSteps}) {
			return
		}
		c.pendingWake = false
		c.state = StateFadingIn
		c.rampStart = now
		c.wakes.Add(1)
		c.logInfo("display waking from off")

	case StateFadingIn:
		if now.Sub(c.rampStart) < c.fadeDuration {
			return
		}
		c.state = StateActive
		c.lastActivity = now
		c.logInfo("display active")
	}
}

// NotifyActivity records user activity. In Active it resets the idle
// timer (and cancels a not-yet-serviced sleep request); in FadingOut and
// Off it latches pendingWake for the next tick. It never delivers the
// activity as input: Interactive remains the separate check that gates
// delivery, so the wake-causing touch is absorbed.
func (c *Controller) NotifyActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateActive:
		c.lastActivity = c.now()
		c.sleepRequested = false
	case StateFadingOut, StateOff:
		c.pendingWake = true
	case StateFadingIn:
		// Already heading to Active; completion resets the timer.
	}
}

// Sleep requests manual sleep. The next tick takes the ordinary timeout
// path, so manual and timeout sleep share one transition. Ignored outside
// Active.
func (c *Controller) Sleep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return
	}
	c.sleepRequested = true
}

// Interactive reports whether input may be delivered to the UI. True only
// in Active: a touch that wakes the display registers as activity but is
// never forwarded as a click.
func (c *Controller) Interactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateActive
}

// ScreenOn reports whether the panel is powered (everything but Off).
func (c *Controller) ScreenOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateOff
}

// State returns the current power state.
func (c *Controller) State() PowerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot for API and broadcast consumers.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.state,
		Interactive: c.state == StateActive,
		ScreenOn:    c.state != StateOff,
		PendingWake: c.pendingWake,
		IdleTimeout: c.idleTimeout,
	}
}

// IdleTimeout returns the configured timeout (0 = disabled).
func (c *Controller) IdleTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleTimeout
}

// SetIdleTimeout applies a live timeout update, clamping nonzero values
// to [MinIdleTimeout, MaxIdleTimeout]. Returns the value applied.
func (c *Controller) SetIdleTimeout(d time.Duration) time.Duration {
	clamped := clampIdleTimeout(d)

	c.mu.Lock()
	c.idleTimeout = clamped
	c.mu.Unlock()

	if clamped != d {
		c.logWarn("idle timeout clamped", "requested", d.String(), "applied", clamped.String())
	}
	return clamped
}

// Stats holds operational counters.
type Stats struct {
	TimeoutSleeps   uint64
	ManualSleeps    uint64
	Wakes           uint64
	SkippedHandoffs uint64
}

// Stats returns a snapshot of operational counters.
func (c *Controller) Stats() Stats {
	return Stats{
		TimeoutSleeps:   c.timeoutSleeps.Load(),
		ManualSleeps:    c.manualSleeps.Load(),
		Wakes:           c.wakes.Load(),
		SkippedHandoffs: c.skippedHandoffs.Load(),
	}
}

// enqueueRender hands a command to the rendering context, waiting at most
// handoffWait. Returns false when the queue stayed full, in which case
// the caller leaves its state unchanged and retries on the next tick.
// Caller holds c.mu.
func (c *Controller) enqueueRender(cmd RenderCommand) bool {
	select {
	case c.renderQ <- cmd:
		return true
	default:
	}

	timer := time.NewTimer(c.handoffWait)
	defer timer.Stop()
	select {
	case c.renderQ <- cmd:
		return true
	case <-timer.C:
		c.skippedHandoffs.Add(1)
		c.logWarn("render handoff timed out, skipping tick", "op", cmd.Op.String())
		return false
	}
}

// clampIdleTimeout bounds nonzero timeouts; zero stays zero (disabled).
func clampIdleTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if d < MinIdleTimeout {
		return MinIdleTimeout
	}
	if d > MaxIdleTimeout {
		return MaxIdleTimeout
	}
	return d
}

// Log helpers: nil-safe wrappers so the controller can run without a
// logger.

func (c *Controller) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Controller) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

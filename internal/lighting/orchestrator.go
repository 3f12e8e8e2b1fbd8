package lighting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lumen-station/internal/lcc"
)

// maxSegmentDuration is the longest transition one command set can carry:
// the duration event's value is a whole-second uint8.
const maxSegmentDuration = 255 * time.Second

// percentFadingCap keeps in-flight sessions below 100 even when send
// retries push wall-clock elapsed past the requested total. Exactly 100 is
// reserved for StateComplete.
const percentFadingCap = 99

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures an Orchestrator.
type Options struct {
	// Sender transmits command-set events. Required.
	Sender lcc.EventSender

	// BaseEventID is the configurable top 48 bits shared by every command
	// event. Defaults to lcc.DefaultBaseEventID.
	BaseEventID lcc.EventID

	// Logger is optional.
	Logger Logger
}

// fadeSession is the single in-flight transition. A new Start replaces it
// wholesale; there is no queueing.
type fadeSession struct {
	start         LightingState
	finalTarget   LightingState
	totalDuration time.Duration

	segmentIndex    int
	segmentCount    int
	segmentTarget   LightingState
	segmentDuration time.Duration

	sessionStart time.Time
	segmentStart time.Time
}

// Orchestrator converts fade requests into bounded-duration command sets
// and drives one segment at a time from a periodic tick. It never performs
// per-frame interpolation itself; receivers own the fade math.
//
// Thread Safety:
//   - All methods are safe for concurrent use; one mutex guards the
//     session, and the display subsystem never shares it.
//   - Tick holds the lock across a segment transmission, so a progress
//     query issued at the instant of a segment boundary may wait for the
//     paced burst (tens of milliseconds).
type Orchestrator struct {
	mu      sync.Mutex
	sender  lcc.EventSender
	baseID  lcc.EventID
	state   FadeState
	session fadeSession
	current LightingState

	// pendingSend marks a segment whose command set has not yet been
	// accepted by the transport; it is retried on the next tick.
	pendingSend bool

	logger Logger

	now func() time.Time
}

// New constructs an Orchestrator. The sender is required; a zero base
// event id falls back to the factory default.
func New(opts Options) (*Orchestrator, error) {
	if opts.Sender == nil {
		return nil, fmt.Errorf("%w: nil event sender", ErrNotInitialized)
	}

	base := opts.BaseEventID.Base()
	if base == 0 {
		base = lcc.DefaultBaseEventID
	}

	return &Orchestrator{
		sender: opts.Sender,
		baseID: base,
		logger: opts.Logger,
		now:    time.Now,
	}, nil
}

// ready guards every operation against use before construction.
func (o *Orchestrator) ready() error {
	if o == nil || o.sender == nil {
		return ErrNotInitialized
	}
	return nil
}

// Start replaces any in-flight session with a new one and immediately
// emits segment 0's command set. The new session interpolates from the
// current baseline, which during a fade is the last segment target sent,
// not the superseded session's final target.
//
// If the transport rejects the first segment the request is discarded, the
// orchestrator returns to idle, and the error is surfaced; the caller may
// retry with the request it still holds.
func (o *Orchestrator) Start(ctx context.Context, req FadeRequest) error {
	if err := o.ready(); err != nil {
		return err
	}
	if req.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalidRequest, req.Duration)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	total := req.Duration

	segmentCount := 1
	if total > 0 {
		segmentCount = int((total + maxSegmentDuration - 1) / maxSegmentDuration)
	}

	o.session = fadeSession{
		start:           o.current,
		finalTarget:     req.Target,
		totalDuration:   total,
		segmentIndex:    0,
		segmentCount:    segmentCount,
		segmentDuration: total / time.Duration(segmentCount),
		sessionStart:    now,
		segmentStart:    now,
	}
	o.session.segmentTarget = lerpState(o.session.start, req.Target, 1, segmentCount)
	o.state = StateFading
	o.pendingSend = false

	if err := o.sendSegment(ctx); err != nil {
		o.state = StateIdle
		o.session = fadeSession{}
		o.pendingSend = false
		return fmt.Errorf("lighting: start fade: %w", err)
	}

	o.logInfo("fade started",
		"target", req.Target.String(),
		"duration", total.String(),
		"segments", segmentCount,
	)
	return nil
}

// ApplyImmediate transitions to the given state with no interpolation.
// Equivalent to Start with a zero duration.
func (o *Orchestrator) ApplyImmediate(ctx context.Context, state LightingState) error {
	return o.Start(ctx, FadeRequest{Target: state})
}

// Tick drives the session forward. Call it on a fixed short period.
//
// Idle ticks do nothing. A Complete tick transitions to Idle (the one-tick
// hysteresis). A Fading tick retries an unsent segment, and advances to
// the next segment once the current one's wall-clock duration has elapsed;
// a send rejection leaves the session on the segment and is retried next
// tick rather than blocking or aborting.
func (o *Orchestrator) Tick(ctx context.Context) error {
	if err := o.ready(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle:
		return nil

	case StateComplete:
		o.state = StateIdle
		o.session = fadeSession{}
		return nil
	}

	now := o.now()

	if now.Sub(o.session.segmentStart) < o.session.segmentDuration {
		if o.pendingSend {
			if err := o.sendSegment(ctx); err != nil {
				o.logWarn("segment retry failed", "segment", o.session.segmentIndex, "error", err)
			}
		}
		return nil
	}

	o.session.segmentIndex++
	if o.session.segmentIndex >= o.session.segmentCount {
		o.state = StateComplete
		o.logInfo("fade complete", "target", o.session.finalTarget.String())
		return nil
	}

	o.session.segmentTarget = lerpState(
		o.session.start,
		o.session.finalTarget,
		o.session.segmentIndex+1,
		o.session.segmentCount,
	)
	o.session.segmentStart = now

	if err := o.sendSegment(ctx); err != nil {
		o.logWarn("segment send failed, will retry",
			"segment", o.session.segmentIndex,
			"error", err,
		)
	}
	return nil
}

// Progress reports the active session's state. Safe to call at any time
// from any goroutine.
func (o *Orchestrator) Progress() FadeProgress {
	if o == nil {
		return FadeProgress{State: StateIdle}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle:
		return FadeProgress{State: StateIdle}

	case StateComplete:
		return FadeProgress{
			State:        StateComplete,
			Percent:      100,
			Elapsed:      o.session.totalDuration,
			Total:        o.session.totalDuration,
			SegmentIndex: o.session.segmentCount - 1,
			SegmentCount: o.session.segmentCount,
		}
	}

	elapsed := o.now().Sub(o.session.sessionStart)
	total := o.session.totalDuration
	if elapsed > total {
		elapsed = total
	}

	percent := percentFadingCap
	if total > 0 {
		percent = int(elapsed * 100 / total)
		if percent > percentFadingCap {
			percent = percentFadingCap
		}
	}

	return FadeProgress{
		State:        StateFading,
		Percent:      percent,
		Elapsed:      elapsed,
		Total:        total,
		SegmentIndex: o.session.segmentIndex,
		SegmentCount: o.session.segmentCount,
	}
}

// Active reports whether a session is in flight (fading or holding the
// complete state for its final tick).
func (o *Orchestrator) Active() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state != StateIdle
}

// Abort forces the orchestrator to idle without emitting anything
// further. The baseline for subsequent fades stays at the last segment
// target sent; the receiver's true mid-fade position is not reconstructed,
// so an abort-then-start can show a visible jump.
func (o *Orchestrator) Abort() {
	if o == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateIdle {
		return
	}

	o.state = StateIdle
	o.session = fadeSession{}
	o.pendingSend = false
	o.logInfo("fade aborted", "baseline", o.current.String())
}

// Current returns the baseline state the next Start interpolates from.
func (o *Orchestrator) Current() LightingState {
	if o == nil {
		return LightingState{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// SetCurrent seeds the baseline without transmitting anything. Used once
// at startup to establish the assumed post-power-on state.
func (o *Orchestrator) SetCurrent(state LightingState) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = state
}

// BaseEventID returns the configured base id.
func (o *Orchestrator) BaseEventID() lcc.EventID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.baseID
}

// SetBaseEventID applies a live base id update; subsequent segments use
// the new base.
func (o *Orchestrator) SetBaseEventID(id lcc.EventID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.baseID = id.Base()
}

// sendSegment emits the current segment's six-event command set as one
// burst. On success the baseline advances to the segment target; on
// failure pendingSend marks the segment for retry. Caller holds o.mu.
func (o *Orchestrator) sendSegment(ctx context.Context) error {
	values := lcc.CommandValues{
		Red:        o.session.segmentTarget.Red,
		Green:      o.session.segmentTarget.Green,
		Blue:       o.session.segmentTarget.Blue,
		White:      o.session.segmentTarget.White,
		Brightness: o.session.segmentTarget.Brightness,
		Duration:   durationByte(o.session.segmentDuration),
	}

	for _, event := range lcc.CommandSet(o.baseID, values) {
		if err := o.sender.SendEvent(ctx, event); err != nil {
			o.pendingSend = true
			return err
		}
	}

	o.pendingSend = false
	o.current = o.session.segmentTarget
	o.logDebug("segment sent",
		"segment", o.session.segmentIndex,
		"of", o.session.segmentCount,
		"target", o.session.segmentTarget.String(),
		"seconds", values.Duration,
	)
	return nil
}

// durationByte converts a segment duration to the whole-second wire value,
// rounding to the nearest second. Sub-second durations round to 0, which
// receivers treat as apply-immediately.
func durationByte(d time.Duration) uint8 {
	secs := (d + time.Second/2) / time.Second
	if secs > 255 {
		return 255
	}
	return uint8(secs)
}

// lerpState interpolates each channel between from and to at the fraction
// num/den using integer arithmetic, matching the receivers' own fade math.
func lerpState(from, to LightingState, num, den int) LightingState {
	return LightingState{
		Red:        lerpChannel(from.Red, to.Red, num, den),
		Green:      lerpChannel(from.Green, to.Green, num, den),
		Blue:       lerpChannel(from.Blue, to.Blue, num, den),
		White:      lerpChannel(from.White, to.White, num, den),
		Brightness: lerpChannel(from.Brightness, to.Brightness, num, den),
	}
}

func lerpChannel(from, to uint8, num, den int) uint8 {
	if den <= 0 {
		return to
	}
	return uint8(int(from) + (int(to)-int(from))*num/den)
}

// Log helpers: nil-safe wrappers so the orchestrator can run without a
// logger.

func (o *Orchestrator) logDebug(msg string, keysAndValues ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, keysAndValues...)
	}
}

func (o *Orchestrator) logInfo(msg string, keysAndValues ...any) {
	if o.logger != nil {
		o.logger.Info(msg, keysAndValues...)
	}
}

func (o *Orchestrator) logWarn(msg string, keysAndValues ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, keysAndValues...)
	}
}

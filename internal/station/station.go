package station

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/lumen-station/internal/display"
	"github.com/nerrad567/lumen-station/internal/lcc"
	"github.com/nerrad567/lumen-station/internal/lighting"
	"github.com/nerrad567/lumen-station/internal/scene"
)

// Tick defaults. The lighting tick paces segment advancement and must
// stay well under one second; the display tick only needs second-level
// timeout resolution.
const (
	DefaultLightingTick = 20 * time.Millisecond
	DefaultDisplayTick  = 500 * time.Millisecond
)

// Status is the station lifecycle state, derived from the supervisor
// phase and transport readiness.
type Status int

const (
	// StatusInitializing: constructed, Start not yet complete.
	StatusInitializing Status = iota

	// StatusRunning: tick loops live, transport ready.
	StatusRunning

	// StatusDegraded: tick loops live, transport reconnecting. Fades
	// started now fail with a not-ready error until the hub returns.
	StatusDegraded

	// StatusStopped: Stop has completed (or Start failed).
	StatusStopped
)

// String returns the lowercase status name used in logs and API payloads.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusRunning:
		return "running"
	case StatusDegraded:
		return "degraded"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// transport is the station's view of the LCC client. *lcc.Client
// implements it; tests substitute a fake through the connect seam.
type transport interface {
	lcc.EventSender
	SetOnEvent(func(source uint16, event lcc.EventID))
	Stats() lcc.Stats
	Close() error
}

// Options configures a Station.
type Options struct {
	// LCC is the transport configuration. The station connects during
	// Start, not construction.
	LCC lcc.Config

	// Scenes is the preset catalogue. Required.
	Scenes scene.Repository

	// Settings is the persisted runtime-settings store. Required.
	Settings *SettingsStore

	// Display is the panel power controller. Required.
	Display *display.Controller

	// LightingTick overrides the fade tick period. Default 20ms.
	LightingTick time.Duration

	// DisplayTick overrides the display tick period. Default 500ms.
	DisplayTick time.Duration

	// Logger is optional.
	Logger Logger
}

// Metrics is an operational snapshot for the metrics endpoint.
type Metrics struct {
	Status        Status
	Uptime        time.Duration
	Transport     lcc.Stats
	Display       display.Stats
	LightingTicks uint64
	DisplayTicks  uint64
}

// Station supervises the lighting command station: the fade
// orchestrator, the display power controller, the LCC transport, the
// scene catalogue, and the settings store.
//
// Lifecycle: New validates wiring, Start connects the transport and
// launches the tick loops, Stop winds everything down. The station
// transmits nothing before Start completes its wiring; the first
// frames on the bus after alias check-in are the boot auto-apply fade.
//
// The lighting and display tick loops run on separate goroutines and
// the two state machines keep separate locks; neither ever blocks the
// other.
type Station struct {
	lccCfg       lcc.Config
	scenes       scene.Repository
	settings     *SettingsStore
	displayC     *display.Controller
	lightingTick time.Duration
	displayTick  time.Duration
	logger       Logger

	// connect establishes the transport; swapped in tests.
	connect func(ctx context.Context) (transport, error)

	mu        sync.Mutex
	phase     Status
	client    transport
	orch      *lighting.Orchestrator
	cancel    context.CancelFunc
	group     *errgroup.Group
	startedAt time.Time

	lightingTicks atomic.Uint64
	displayTicks  atomic.Uint64
}

// New constructs a Station. It performs no I/O; Start does the wiring.
func New(opts Options) (*Station, error) {
	if opts.Scenes == nil {
		return nil, errors.New("station: nil scene repository")
	}
	if opts.Settings == nil {
		return nil, errors.New("station: nil settings store")
	}
	if opts.Display == nil {
		return nil, errors.New("station: nil display controller")
	}
	if opts.LightingTick <= 0 {
		opts.LightingTick = DefaultLightingTick
	}
	if opts.DisplayTick <= 0 {
		opts.DisplayTick = DefaultDisplayTick
	}

	s := &Station{
		lccCfg:       opts.LCC,
		scenes:       opts.Scenes,
		settings:     opts.Settings,
		displayC:     opts.Display,
		lightingTick: opts.LightingTick,
		displayTick:  opts.DisplayTick,
		logger:       opts.Logger,
		phase:        StatusInitializing,
	}
	s.connect = s.dialLCC
	return s, nil
}

// dialLCC is the production transport connector.
func (s *Station) dialLCC(ctx context.Context) (transport, error) {
	cfg := s.lccCfg
	if cfg.Logger == nil && s.logger != nil {
		cfg.Logger = s.logger
	}
	return lcc.Connect(ctx, cfg)
}

// Start wires the station and launches the tick loops.
//
// Order matters: the catalogue is seeded and the display timeout
// applied before the transport connects, so by the time the node is
// discoverable on the bus every subsystem is in place. The boot
// auto-apply fade, when enabled, is the first transmission.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != StatusInitializing {
		s.mu.Unlock()
		return fmt.Errorf("station: start from %s", s.phase)
	}
	s.mu.Unlock()

	st, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if err := s.scenes.EnsureDefault(ctx); err != nil {
		return fmt.Errorf("seeding scene catalogue: %w", err)
	}

	s.displayC.SetIdleTimeout(st.DisplayIdleTimeout)

	client, err := s.connect(ctx)
	if err != nil {
		s.mu.Lock()
		s.phase = StatusStopped
		s.mu.Unlock()
		return fmt.Errorf("connecting transport: %w", err)
	}
	client.SetOnEvent(s.observeEvent)

	orch, err := lighting.New(lighting.Options{
		Sender:      client,
		BaseEventID: st.BaseEventID,
		Logger:      s.logger,
	})
	if err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		s.mu.Lock()
		s.phase = StatusStopped
		s.mu.Unlock()
		return fmt.Errorf("building orchestrator: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return s.lightingLoop(gctx, orch) })
	g.Go(func() error { return s.displayLoop(gctx) })

	s.mu.Lock()
	s.client = client
	s.orch = orch
	s.cancel = cancel
	s.group = g
	s.startedAt = time.Now()
	s.phase = StatusRunning
	s.mu.Unlock()

	s.logInfo("station started",
		"base_event_id", st.BaseEventID.BaseString(),
		"idle_timeout", st.DisplayIdleTimeout.String(),
		"lighting_tick", s.lightingTick.String(),
		"display_tick", s.displayTick.String(),
	)

	s.bootAutoApply(ctx, st)
	return nil
}

// bootAutoApply fades from dark to the front of the catalogue.
func (s *Station) bootAutoApply(ctx context.Context, st Settings) {
	if !st.AutoApplyEnabled {
		s.logInfo("boot auto-apply disabled")
		return
	}

	first, err := s.scenes.First(ctx)
	if err != nil {
		s.logWarn("boot auto-apply skipped", "error", err)
		return
	}

	orch := s.fadeOrch()
	orch.SetCurrent(lighting.LightingState{})
	if err := orch.Start(ctx, lighting.FadeRequest{
		Target:   first.Channels,
		Duration: st.AutoApplyDuration,
	}); err != nil {
		s.logWarn("boot auto-apply failed", "scene", first.Name, "error", err)
		return
	}
	s.logInfo("boot auto-apply started",
		"scene", first.Name,
		"duration", st.AutoApplyDuration.String(),
	)
}

// Stop cancels the tick loops and closes the transport. Idempotent.
func (s *Station) Stop() error {
	s.mu.Lock()
	if s.phase != StatusRunning && s.phase != StatusDegraded {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	group := s.group
	client := s.client
	s.phase = StatusStopped
	s.mu.Unlock()

	cancel()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		s.logWarn("tick loop exited with error", "error", err)
	}

	var err error
	if client != nil {
		err = client.Close()
	}
	s.logInfo("station stopped")
	return err
}

// lightingLoop drives the fade orchestrator at the fine tick period.
func (s *Station) lightingLoop(ctx context.Context, orch *lighting.Orchestrator) error {
	ticker := time.NewTicker(s.lightingTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.lightingTicks.Add(1)
			if err := orch.Tick(ctx); err != nil {
				s.logWarn("lighting tick failed", "error", err)
			}
		}
	}
}

// displayLoop drives the power state machine at the coarse tick period.
func (s *Station) displayLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.displayTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.displayTicks.Add(1)
			s.displayC.Tick()
		}
	}
}

// observeEvent logs event reports from other nodes on the bus.
func (s *Station) observeEvent(source uint16, event lcc.EventID) {
	s.logDebug("bus event observed",
		"source", fmt.Sprintf("%03X", source),
		"event", event.String(),
	)
}

// Status derives the lifecycle state. Degraded means the loops are
// live but the transport is mid-reconnect.
func (s *Station) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != StatusRunning {
		return s.phase
	}
	if s.client != nil && s.client.Ready() {
		return StatusRunning
	}
	return StatusDegraded
}

// TransportReady reports whether the LCC client can transmit.
func (s *Station) TransportReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.Ready()
}

// Uptime reports time since Start completed, zero before that.
func (s *Station) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Metrics returns an operational snapshot.
func (s *Station) Metrics() Metrics {
	s.mu.Lock()
	client := s.client
	startedAt := s.startedAt
	s.mu.Unlock()

	m := Metrics{
		Status:        s.Status(),
		Display:       s.displayC.Stats(),
		LightingTicks: s.lightingTicks.Load(),
		DisplayTicks:  s.displayTicks.Load(),
	}
	if client != nil {
		m.Transport = client.Stats()
	}
	if !startedAt.IsZero() {
		m.Uptime = time.Since(startedAt)
	}
	return m
}

// fadeOrch returns the orchestrator, nil before Start. The
// orchestrator's methods are nil-tolerant for reads; mutating surface
// methods guard with ErrNotRunning instead.
func (s *Station) fadeOrch() *lighting.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch
}

// runningOrch returns the orchestrator or ErrNotRunning.
func (s *Station) runningOrch() (*lighting.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StatusRunning || s.orch == nil {
		return nil, ErrNotRunning
	}
	return s.orch, nil
}

// StartFade begins a transition to the target state, replacing any
// fade in flight.
func (s *Station) StartFade(ctx context.Context, req lighting.FadeRequest) error {
	orch, err := s.runningOrch()
	if err != nil {
		return err
	}
	return orch.Start(ctx, req)
}

// ApplyImmediate jumps to the target state with no interpolation.
func (s *Station) ApplyImmediate(ctx context.Context, state lighting.LightingState) error {
	orch, err := s.runningOrch()
	if err != nil {
		return err
	}
	return orch.ApplyImmediate(ctx, state)
}

// Abort cancels any fade in flight. Synchronous; already-transmitted
// segments are not corrected.
func (s *Station) Abort() error {
	orch, err := s.runningOrch()
	if err != nil {
		return err
	}
	orch.Abort()
	return nil
}

// Progress reports the active fade session.
func (s *Station) Progress() lighting.FadeProgress {
	return s.fadeOrch().Progress()
}

// Active reports whether a fade session is in flight.
func (s *Station) Active() bool {
	return s.fadeOrch().Active()
}

// Current returns the lighting baseline last commanded.
func (s *Station) Current() lighting.LightingState {
	return s.fadeOrch().Current()
}

// ActivateScene fades to the named catalogue entry. A nil duration
// uses the persisted auto-apply duration. Returns the resolved scene.
func (s *Station) ActivateScene(ctx context.Context, id string, duration *time.Duration) (*scene.Scene, error) {
	orch, err := s.runningOrch()
	if err != nil {
		return nil, err
	}

	sc, err := s.scenes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d, err := s.activateDuration(ctx, duration)
	if err != nil {
		return nil, err
	}

	if err := orch.Start(ctx, lighting.FadeRequest{Target: sc.Channels, Duration: d}); err != nil {
		return nil, err
	}
	s.logInfo("scene activated", "scene", sc.Name, "duration", d.String())
	return sc, nil
}

// activateDuration resolves an explicit duration or falls back to the
// persisted auto-apply duration.
func (s *Station) activateDuration(ctx context.Context, duration *time.Duration) (time.Duration, error) {
	if duration != nil {
		return *duration, nil
	}
	st, err := s.settings.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}
	return st.AutoApplyDuration, nil
}

// NotifyActivity records user activity with the display controller.
func (s *Station) NotifyActivity() {
	s.displayC.NotifyActivity()
}

// Sleep requests manual display sleep.
func (s *Station) Sleep() {
	s.displayC.Sleep()
}

// Interactive reports whether panel input may be delivered.
func (s *Station) Interactive() bool {
	return s.displayC.Interactive()
}

// ScreenOn reports whether the panel is powered.
func (s *Station) ScreenOn() bool {
	return s.displayC.ScreenOn()
}

// DisplayStatus returns the display controller snapshot.
func (s *Station) DisplayStatus() display.Status {
	return s.displayC.Status()
}

// IdleTimeout returns the live display idle timeout.
func (s *Station) IdleTimeout() time.Duration {
	return s.displayC.IdleTimeout()
}

// SetIdleTimeout persists a new idle timeout and applies it live.
// Returns the applied (possibly clamped) value.
func (s *Station) SetIdleTimeout(ctx context.Context, d time.Duration) (time.Duration, error) {
	secs := int(d / time.Second)
	st, err := s.UpdateSettings(ctx, SettingsPatch{DisplayIdleTimeout: &secs})
	if err != nil {
		return 0, err
	}
	return st.DisplayIdleTimeout, nil
}

// RenderCommands exposes the display render queue. Exactly one
// consumer (the panel transport) drains it.
func (s *Station) RenderCommands() <-chan display.RenderCommand {
	return s.displayC.Render()
}

// Settings returns the persisted runtime settings snapshot.
func (s *Station) Settings(ctx context.Context) (Settings, error) {
	return s.settings.Load(ctx)
}

// UpdateSettings persists a settings patch and applies the live
// pieces: the display idle timeout takes effect immediately, a new
// base event id applies to the next command set, and the auto-apply
// fields are consulted at the next boot.
func (s *Station) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	st, err := s.settings.Apply(ctx, patch)
	if err != nil {
		return Settings{}, err
	}

	s.displayC.SetIdleTimeout(st.DisplayIdleTimeout)
	if orch := s.fadeOrch(); orch != nil {
		orch.SetBaseEventID(st.BaseEventID)
	}
	return st, nil
}

// Log helpers: nil-safe wrappers so the station can run without a
// logger wired.
func (s *Station) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Station) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Station) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

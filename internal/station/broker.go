package station

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lumen-station/internal/display"
	"github.com/nerrad567/lumen-station/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-station/internal/lighting"
)

// DefaultMirrorInterval paces the broker snapshot loop. MQTT consumers
// are automation controllers, not the panel; one snapshot per second
// is plenty and keeps retained-message churn low.
const DefaultMirrorInterval = time.Second

// BrokerConn is the broker connection surface the mirror drives.
// *mqtt.Client satisfies it.
type BrokerConn interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
}

// Mirror republishes station state to an MQTT broker and dispatches
// broker commands back into the station.
//
// State topics are retained: fade progress, display state, and station
// status always hold the latest snapshot, so a controller connecting
// mid-fade sees current values without waiting for a transition.
// Command topics mirror the API's fade and display operations for
// automation controllers that speak MQTT rather than HTTP.
//
// The mirror is strictly optional. Command dispatch errors and publish
// failures are logged and absorbed; nothing here can take the station
// down.
type Mirror struct {
	conn    BrokerConn
	station *Station
	qos     byte
	logger  Logger

	// interval paces the snapshot loop; tests shorten it.
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	cmdCtx  context.Context
	started bool
}

// NewMirror creates a broker mirror for the given station.
func NewMirror(conn BrokerConn, st *Station, qos int, logger Logger) (*Mirror, error) {
	if conn == nil {
		return nil, fmt.Errorf("station: broker connection is required")
	}
	if st == nil {
		return nil, fmt.Errorf("station: station is required")
	}
	return &Mirror{
		conn:     conn,
		station:  st,
		qos:      byte(qos),
		logger:   logger,
		interval: DefaultMirrorInterval,
	}, nil
}

// Start subscribes the command topics and begins the snapshot loop.
// It publishes the current snapshots immediately so the retained
// topics are populated before the first diff.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("station: mirror already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.cmdCtx = runCtx
	m.done = make(chan struct{})
	m.started = true
	m.mu.Unlock()

	topics := m.conn.Topics()
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.CommandFade(), m.handleFadeCommand},
		{topics.CommandAbort(), m.handleAbortCommand},
		{topics.CommandDisplay(), m.handleDisplayCommand},
	}
	for _, sub := range subs {
		if err := m.conn.Subscribe(sub.topic, m.qos, sub.handler); err != nil {
			cancel()
			close(m.done)
			return fmt.Errorf("subscribing %s: %w", sub.topic, err)
		}
	}

	m.publishSnapshots(snapshot{}, true)

	go m.loop(runCtx)

	if m.logger != nil {
		m.logger.Info("broker mirror started",
			"interval", m.interval,
			"commands", topics.AllCommands(),
		)
	}
	return nil
}

// Stop cancels the snapshot loop and waits for it to exit. Command
// subscriptions die with the client connection; the mirror does not
// unsubscribe explicitly.
func (m *Mirror) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// snapshot carries the previously published values for diffing. All
// three are comparable structs.
type snapshot struct {
	progress lighting.FadeProgress
	display  display.Status
	status   Status
}

// loop publishes changed snapshots until the context is cancelled.
func (m *Mirror) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	prev := snapshot{
		progress: m.station.Progress(),
		display:  m.station.DisplayStatus(),
		status:   m.station.Status(),
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev = m.publishSnapshots(prev, false)
		}
	}
}

// publishSnapshots publishes every snapshot that differs from prev and
// returns the new baseline. With force set, everything publishes
// regardless.
func (m *Mirror) publishSnapshots(prev snapshot, force bool) snapshot {
	topics := m.conn.Topics()

	next := snapshot{
		progress: m.station.Progress(),
		display:  m.station.DisplayStatus(),
		status:   m.station.Status(),
	}

	if force || next.progress != prev.progress {
		m.publishJSON(topics.FadeProgress(), next.progress)
	}
	if force || next.display != prev.display {
		m.publishJSON(topics.DisplayState(), displayPayload(next.display))
	}
	if force || next.status != prev.status {
		m.publishJSON(topics.StationStatus(), map[string]any{
			"status":    next.status.String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	return next
}

// publishJSON marshals and publishes a retained payload, absorbing
// failures. A disconnected broker surfaces here on every change; the
// paho client reconnects on its own and the next change republishes.
func (m *Mirror) publishJSON(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if m.logger != nil {
			m.logger.Error("marshaling broker payload", "topic", topic, "error", err)
		}
		return
	}
	if err := m.conn.PublishRetained(topic, data); err != nil {
		if m.logger != nil {
			m.logger.Warn("publishing broker payload", "topic", topic, "error", err)
		}
	}
}

// displayPayload mirrors the API's display representation: string
// state, integer seconds.
func displayPayload(st display.Status) map[string]any {
	return map[string]any{
		"state":                st.State.String(),
		"interactive":          st.Interactive,
		"screen_on":            st.ScreenOn,
		"pending_wake":         st.PendingWake,
		"idle_timeout_seconds": int(st.IdleTimeout.Seconds()),
	}
}

// fadeCommand is the lumen/command/fade payload, mirroring the POST
// /api/v1/fade body.
type fadeCommand struct {
	Target          lighting.LightingState `json:"target"`
	DurationSeconds int                    `json:"duration_seconds"`
}

// displayCommand is the lumen/command/display payload.
type displayCommand struct {
	Action string `json:"action"`
}

// handleFadeCommand starts a fade from a broker command.
func (m *Mirror) handleFadeCommand(_ string, payload []byte) error {
	var cmd fadeCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding fade command: %w", err)
	}
	if cmd.DurationSeconds < 0 {
		return fmt.Errorf("fade command: duration_seconds must not be negative")
	}

	err := m.station.StartFade(m.commandContext(), lighting.FadeRequest{
		Target:   cmd.Target,
		Duration: time.Duration(cmd.DurationSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("starting fade: %w", err)
	}
	return nil
}

// handleAbortCommand aborts the running fade. The payload is ignored.
func (m *Mirror) handleAbortCommand(_ string, _ []byte) error {
	if err := m.station.Abort(); err != nil {
		return fmt.Errorf("aborting fade: %w", err)
	}
	return nil
}

// handleDisplayCommand wakes or sleeps the display.
func (m *Mirror) handleDisplayCommand(_ string, payload []byte) error {
	var cmd displayCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding display command: %w", err)
	}

	switch cmd.Action {
	case "wake":
		m.station.NotifyActivity()
	case "sleep":
		m.station.Sleep()
	default:
		return fmt.Errorf("display command: unknown action %q", cmd.Action)
	}
	return nil
}

// commandContext returns the context command handlers run under.
// Cancelled by Stop, so an in-flight command cannot outlive the mirror.
func (m *Mirror) commandContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmdCtx != nil {
		return m.cmdCtx
	}
	return context.Background()
}

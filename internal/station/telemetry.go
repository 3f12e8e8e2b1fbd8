package station

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lumen-station/internal/display"
	"github.com/nerrad567/lumen-station/internal/lighting"
)

// DefaultSampleInterval is how often the telemetry recorder samples
// the station.
const DefaultSampleInterval = time.Second

// TelemetrySink receives station measurements. *telemetry.Client
// satisfies it; writes must be non-blocking.
type TelemetrySink interface {
	WriteFadeSample(state string, percent, segmentIndex, segmentCount int)
	WriteDisplayTransition(from, to string)
	WriteTransportCounters(sent, received, dropped, errorsTotal uint64)
}

// Recorder samples the running station into a telemetry sink: fade
// progress on every tick of an active session, display transitions
// and transport counter movement as they happen.
//
// The recorder only reads station snapshots, so it can start and stop
// independently of the station and never blocks the tick loops.
type Recorder struct {
	sink    TelemetrySink
	station *Station

	// interval is the sampling period, overridable in tests.
	interval time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRecorder wires a recorder over the station.
func NewRecorder(sink TelemetrySink, st *Station) (*Recorder, error) {
	if sink == nil {
		return nil, fmt.Errorf("station: telemetry sink is required")
	}
	if st == nil {
		return nil, fmt.Errorf("station: station is required")
	}
	return &Recorder{
		sink:     sink,
		station:  st,
		interval: DefaultSampleInterval,
	}, nil
}

// Start launches the sampling loop. The loop runs until Stop or until
// ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("station: recorder already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go r.loop(runCtx)
	return nil
}

// Stop halts the sampling loop and waits for it to exit. Safe to call
// repeatedly or before Start.
func (r *Recorder) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// observation carries the previously sampled values for diffing.
type observation struct {
	display   display.PowerState
	transport transportCounters
}

// transportCounters is the comparable subset of lcc.Stats the
// recorder tracks.
type transportCounters struct {
	sent        uint64
	received    uint64
	dropped     uint64
	errorsTotal uint64
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Seed from the current state so startup writes nothing.
	prev := r.observe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev = r.sample(prev)
		}
	}
}

func (r *Recorder) observe() observation {
	metrics := r.station.Metrics()
	return observation{
		display: r.station.DisplayStatus().State,
		transport: transportCounters{
			sent:        metrics.Transport.EventsSent,
			received:    metrics.Transport.EventsReceived,
			dropped:     metrics.Transport.EventsDropped,
			errorsTotal: metrics.Transport.ErrorsTotal,
		},
	}
}

// sample writes one round of measurements and returns the new
// baseline for the next diff.
func (r *Recorder) sample(prev observation) observation {
	progress := r.station.Progress()
	if progress.State != lighting.StateIdle {
		r.sink.WriteFadeSample(progress.State.String(), progress.Percent,
			progress.SegmentIndex, progress.SegmentCount)
	}

	next := r.observe()
	if next.display != prev.display {
		r.sink.WriteDisplayTransition(prev.display.String(), next.display.String())
	}
	if next.transport != prev.transport {
		c := next.transport
		r.sink.WriteTransportCounters(c.sent, c.received, c.dropped, c.errorsTotal)
	}
	return next
}

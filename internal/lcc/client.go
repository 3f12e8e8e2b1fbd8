package lcc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for hub communication.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultReadTimeout is the timeout for individual read operations.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the timeout for write operations.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute

	// defaultEventSpacing is the minimum gap between consecutive event
	// transmissions. CAN lighting decoders on slow segments drop events
	// that arrive back to back, so sends are paced.
	defaultEventSpacing = 10 * time.Millisecond

	// aliasReserveWait is how long the check-in sequence listens for
	// objections after the CID frames before claiming the alias.
	aliasReserveWait = 200 * time.Millisecond

	// aliasMaxAttempts bounds how many candidate aliases check-in tries
	// before giving up.
	aliasMaxAttempts = 8

	// maxFrameLen bounds one inbound GridConnect line. Anything longer is
	// a desynced or hostile stream.
	maxFrameLen = 64

	// eventQueueSize buffers inbound event reports for the handler
	// dispatcher; overflow drops with a counter rather than blocking the
	// receive loop.
	eventQueueSize = 64
)

// Config holds hub connection configuration.
type Config struct {
	// Address is the GridConnect hub's TCP address ("localhost:12021").
	Address string

	// NodeID is this station's 48-bit node identifier, announced during
	// alias check-in.
	NodeID NodeID

	// EventSpacing is the minimum gap between event transmissions.
	// Default: 10ms.
	EventSpacing time.Duration

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations.
	// Default: 30 seconds.
	ReadTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration

	// Logger receives connection lifecycle logs, including alias check-in
	// during Connect. Optional; SetLogger can attach or replace one later.
	Logger Logger
}

// Stats holds operational statistics for the hub connection.
type Stats struct {
	EventsSent     uint64
	EventsReceived uint64
	EventsDropped  uint64 // Inbound reports dropped due to full handler queue
	ErrorsTotal    uint64
	Reconnects     uint64
	AliasConflicts uint64
	LastActivity   time.Time
	Connected      bool
	Ready          bool
	Alias          uint16
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// EventSender is the narrow transport facade consumed by the fade
// orchestrator: transmit one event, and report readiness. Implementations
// must be safe for concurrent use.
type EventSender interface {
	SendEvent(ctx context.Context, event EventID) error
	Ready() bool
}

// Ensure Client implements EventSender.
var _ EventSender = (*Client)(nil)

// Client is a GridConnect TCP connection to an LCC hub.
//
// After dialing it runs the CAN alias check-in (four CID frames, a reserve
// wait, then RID and AMD) before reporting Ready. Events are produced as
// PCER frames; inbound frames are watched for alias map enquiries, alias
// conflicts, and event reports from other nodes.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The event handler callback is invoked from a dedicated goroutine.
//
// Auto-Reconnection:
//   - On connection loss the client reconnects with exponential backoff
//     (ReconnectInterval up to 2 minutes) and re-runs alias check-in.
//   - Reconnection stops only when Close() is called.
type Client struct {
	cfg Config

	// Connection state
	connMu    sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool

	// Alias state. permitted flips true once check-in completes and
	// gates SendEvent; alias is only written during check-in.
	permitted atomic.Bool
	alias     atomic.Uint32
	aliasSeed uint64

	// Send pacing. sendMu serializes writers; lastSend is guarded by it.
	sendMu   sync.Mutex
	lastSend time.Time

	// Inbound event handler
	onEvent    func(source uint16, event EventID)
	callbackMu sync.RWMutex
	eventQueue chan inboundEvent

	// Reconnection state
	reconnecting atomic.Bool

	// Shutdown coordination
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	eventsSent     atomic.Uint64
	eventsReceived atomic.Uint64
	eventsDropped  atomic.Uint64
	errorsTotal    atomic.Uint64
	reconnects     atomic.Uint64
	aliasConflicts atomic.Uint64
	lastActivity   atomic.Int64 // Unix timestamp
}

// inboundEvent pairs a received event id with its sender alias.
type inboundEvent struct {
	source uint16
	event  EventID
}

// Connect dials the hub, performs alias check-in, and starts the receive
// loop. The returned client is Ready once check-in completes.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.NodeID.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNodeID, cfg.NodeID)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.EventSpacing == 0 {
		cfg.EventSpacing = defaultEventSpacing
	}

	c := &Client{
		cfg:        cfg,
		aliasSeed:  uint64(cfg.NodeID),
		done:       newCloseOnce(),
		eventQueue: make(chan inboundEvent, eventQueueSize),
		logger:     cfg.Logger,
	}
	c.lastActivity.Store(time.Now().Unix())

	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	if err := c.checkIn(); err != nil {
		c.closeConn()
		return nil, err
	}

	c.wg.Add(1)
	go c.dispatchWorker()

	c.wg.Add(1)
	go c.receiveLoop()

	return c, nil
}

// dial establishes the TCP connection within the connect timeout.
func (c *Client) dial(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.cfg.Address, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true
	c.connMu.Unlock()
	return nil
}

// nextAlias derives a candidate 12-bit alias from the node id seed.
// The sequence is deterministic per node but changes on every retry;
// 0x000 and 0xFFF are reserved and skipped.
func (c *Client) nextAlias() uint16 {
	for {
		c.aliasSeed = c.aliasSeed*6364136223846793005 + 1442695040888963407
		folded := c.aliasSeed ^ bits.RotateLeft64(c.aliasSeed, 24)
		alias := uint16(folded>>36) & aliasMask
		if alias != 0x000 && alias != 0xFFF {
			return alias
		}
	}
}

// checkIn runs the alias reservation sequence: CID1..4, a silent wait for
// objections, then RID and AMD. A frame observed carrying the candidate
// alias during the wait restarts the sequence with a fresh candidate.
func (c *Client) checkIn() error {
	for attempt := 0; attempt < aliasMaxAttempts; attempt++ {
		alias := c.nextAlias()

		ok, err := c.tryReserveAlias(alias)
		if err != nil {
			return err
		}
		if !ok {
			c.aliasConflicts.Add(1)
			c.logWarn("alias collision during check-in, retrying", "alias", fmt.Sprintf("%03X", alias))
			continue
		}

		c.alias.Store(uint32(alias))
		c.permitted.Store(true)
		c.logInfo("alias reserved",
			"alias", fmt.Sprintf("%03X", alias),
			"node_id", c.cfg.NodeID.String(),
		)
		return nil
	}
	return ErrAliasExhausted
}

// tryReserveAlias sends the CID sequence for one candidate and listens for
// the reserve window. Returns false on collision, error on I/O failure.
func (c *Client) tryReserveAlias(alias uint16) (bool, error) {
	for i := 0; i < 4; i++ {
		if err := c.writeFrame(cidFrame(i, c.cfg.NodeID, alias)); err != nil {
			return false, err
		}
	}

	// Listen for objections until the reserve window closes. Any frame
	// carrying the candidate alias means another node owns or wants it.
	deadline := time.Now().Add(aliasReserveWait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		frame, err := c.readFrame(remaining)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break // Window closed silently
			}
			return false, fmt.Errorf("%w: reserve wait: %w", ErrConnectionFailed, err)
		}
		if frame.Alias() == alias {
			return false, nil
		}
		c.handleFrame(frame)
	}

	if err := c.writeFrame(ridFrame(alias)); err != nil {
		return false, err
	}
	if err := c.writeFrame(amdFrame(alias, c.cfg.NodeID)); err != nil {
		return false, err
	}
	return true, nil
}

// SendEvent transmits one event as a PCER frame, pacing consecutive sends
// at least EventSpacing apart. It returns ErrNotReady while disconnected
// or before alias check-in completes; the caller decides whether to retry.
func (c *Client) SendEvent(ctx context.Context, event EventID) error {
	if c.isClosed() {
		return ErrClosed
	}
	if !c.Ready() {
		return ErrNotReady
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	// Pace: never violate the inter-event spacing bound. Waiting here
	// widens the apparent step rather than dropping the bound.
	if wait := c.cfg.EventSpacing - time.Since(c.lastSend); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
		case <-c.done.Done():
			return ErrClosed
		}
	}

	frame := eventReportFrame(uint16(c.alias.Load()), event)
	if err := c.writeFrame(frame); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.lastSend = time.Now()
	c.eventsSent.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	c.logDebug("event sent", "event", event.String())
	return nil
}

// Ready reports whether the client is connected and holds a permitted
// alias, i.e. whether SendEvent can currently succeed.
func (c *Client) Ready() bool {
	c.connMu.Lock()
	connected := c.connected
	c.connMu.Unlock()
	return connected && c.permitted.Load()
}

// SetOnEvent registers a callback for event reports received from other
// nodes. The callback runs on a dedicated goroutine; slow callbacks cause
// overflow drops rather than blocking the receive loop.
func (c *Client) SetOnEvent(callback func(source uint16, event EventID)) {
	c.callbackMu.Lock()
	c.onEvent = callback
	c.callbackMu.Unlock()
}

// SetLogger attaches a logger. Safe to call at any time.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Stats returns a snapshot of operational counters.
func (c *Client) Stats() Stats {
	c.connMu.Lock()
	connected := c.connected
	c.connMu.Unlock()

	return Stats{
		EventsSent:     c.eventsSent.Load(),
		EventsReceived: c.eventsReceived.Load(),
		EventsDropped:  c.eventsDropped.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
		Reconnects:     c.reconnects.Load(),
		AliasConflicts: c.aliasConflicts.Load(),
		LastActivity:   time.Unix(c.lastActivity.Load(), 0),
		Connected:      connected,
		Ready:          connected && c.permitted.Load(),
		Alias:          uint16(c.alias.Load()),
	}
}

// HealthCheck verifies the hub connection is alive and the alias is held.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("lcc health check: %w", ctx.Err())
	default:
	}
	if c.isClosed() {
		return ErrClosed
	}
	if !c.Ready() {
		return ErrNotReady
	}
	return nil
}

// Close releases the alias (best effort AMR), closes the connection, and
// stops all goroutines. Safe to call multiple times.
func (c *Client) Close() error {
	if c.isClosed() {
		return nil
	}

	// Release the alias so other nodes can reuse it promptly. Best
	// effort: the socket may already be dead.
	if c.Ready() {
		_ = c.writeFrame(amrFrame(uint16(c.alias.Load()), c.cfg.NodeID)) //nolint:errcheck // best-effort release
	}

	c.done.Close()
	c.permitted.Store(false)
	c.closeConn()
	c.wg.Wait()
	return nil
}

// closeConn closes the socket if open.
func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck // best-effort cleanup
		c.conn = nil
	}
	c.connected = false
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// writeFrame writes one GridConnect line with a write deadline.
func (c *Client) writeFrame(f Frame) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return ErrNotReady
	}

	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	line := append(f.Encode(), '\n')
	if _, err := conn.Write(line); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readFrame reads and parses one frame, skipping blank lines, within the
// given timeout.
func (c *Client) readFrame(timeout time.Duration) (Frame, error) {
	c.connMu.Lock()
	conn, reader := c.conn, c.reader
	c.connMu.Unlock()
	if conn == nil {
		return Frame{}, ErrNotReady
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Frame{}, fmt.Errorf("set read deadline: %w", err)
	}

	for {
		line, err := reader.ReadString(';')
		if err != nil {
			return Frame{}, err
		}
		if len(line) > maxFrameLen {
			return Frame{}, fmt.Errorf("%w: oversized frame (%d bytes)", ErrInvalidFrame, len(line))
		}
		if frame, perr := ParseFrame(line); perr == nil {
			return frame, nil
		}
		// Tolerate noise between frames (blank lines, partial writes
		// after reconnect); resync on the next terminator.
	}
}

// receiveLoop continuously reads frames from the hub.
// On connection loss it reconnects with exponential backoff.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		default:
		}

		frame, err := c.readFrame(c.cfg.ReadTimeout)
		if err != nil {
			if c.isClosed() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue // Quiet bus, keep listening
			}

			c.errorsTotal.Add(1)
			c.handleDisconnect()
			if !c.reconnect() {
				return // Shutdown during reconnection
			}
			continue
		}

		c.handleFrame(frame)
	}
}

// handleFrame reacts to one inbound frame: alias defense, AME responses,
// and event report dispatch.
func (c *Client) handleFrame(frame Frame) {
	c.lastActivity.Store(time.Now().Unix())
	alias := uint16(c.alias.Load())

	switch {
	case frame.IsAME():
		// Alias map enquiry: global (no data) or targeted at our node id.
		if c.permitted.Load() && (len(frame.Data) == 0 || frameTargetsNode(frame, c.cfg.NodeID)) {
			if err := c.writeFrame(amdFrame(alias, c.cfg.NodeID)); err != nil {
				c.logWarn("AME response failed", "error", err)
			}
		}

	case frame.Alias() == alias && c.permitted.Load():
		// Another node is using our alias. A CID can be defended with an
		// RID; anything else means the alias is lost and must be
		// re-reserved.
		if frame.IsCID() {
			if err := c.writeFrame(ridFrame(alias)); err != nil {
				c.logWarn("alias defense failed", "error", err)
			}
			return
		}
		c.aliasConflicts.Add(1)
		c.permitted.Store(false)
		c.logWarn("alias conflict, re-running check-in", "alias", fmt.Sprintf("%03X", alias))
		if err := c.checkIn(); err != nil {
			c.logError("alias re-reservation failed", err)
		}

	case frame.IsEventReport():
		if event, ok := frame.EventID(); ok {
			c.handleEventReport(frame.Alias(), event)
		}
	}
}

// handleEventReport queues an inbound event for the dispatcher.
func (c *Client) handleEventReport(source uint16, event EventID) {
	c.eventsReceived.Add(1)

	c.callbackMu.RLock()
	hasCallback := c.onEvent != nil
	c.callbackMu.RUnlock()
	if !hasCallback {
		return
	}

	select {
	case c.eventQueue <- inboundEvent{source: source, event: event}:
	default:
		// Queue full: drop rather than stall the receive loop.
		c.eventsDropped.Add(1)
		c.errorsTotal.Add(1)
	}
}

// dispatchWorker delivers queued event reports to the callback.
func (c *Client) dispatchWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		case in := <-c.eventQueue:
			c.callbackMu.RLock()
			callback := c.onEvent
			c.callbackMu.RUnlock()

			if callback != nil {
				func() {
					defer func() {
						if r := recover(); r != nil {
							c.logError("event callback panic", fmt.Errorf("%v", r))
						}
					}()
					callback(in.source, in.event)
				}()
			}
		}
	}
}

// handleDisconnect marks the connection lost.
func (c *Client) handleDisconnect() {
	c.permitted.Store(false)
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.connMu.Unlock()

	if wasConnected {
		c.logInfo("hub connection lost, will attempt reconnection")
	}
}

// reconnect re-establishes the connection with exponential backoff and
// re-runs alias check-in. Returns false if shutdown was signalled.
func (c *Client) reconnect() bool {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return !c.isClosed()
	}
	defer c.reconnecting.Store(false)

	c.closeConn()
	backoff := c.cfg.ReconnectInterval

	for {
		if c.isClosed() {
			return false
		}

		c.logInfo("reconnecting to hub", "address", c.cfg.Address, "backoff", backoff.String())

		timer := time.NewTimer(backoff)
		select {
		case <-c.done.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}

		if err := c.dial(context.Background()); err != nil {
			c.logWarn("reconnect dial failed", "error", err)
			backoff = nextBackoff(backoff)
			continue
		}

		if err := c.checkIn(); err != nil {
			c.logWarn("reconnect check-in failed", "error", err)
			c.closeConn()
			backoff = nextBackoff(backoff)
			continue
		}

		c.reconnects.Add(1)
		c.logInfo("hub connection restored")
		return true
	}
}

// nextBackoff grows the reconnect delay by 1.5x up to the cap.
func nextBackoff(current time.Duration) time.Duration {
	next := current + current/2
	if next > maxReconnectInterval {
		return maxReconnectInterval
	}
	return next
}

// frameTargetsNode reports whether a control frame's payload names the
// given node id.
func frameTargetsNode(frame Frame, node NodeID) bool {
	if len(frame.Data) != nodeIDBytes {
		return false
	}
	var got NodeID
	for _, b := range frame.Data {
		got = got<<8 | NodeID(b)
	}
	return got == node
}

// Log helpers: nil-safe wrappers so components can run without a logger.

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error) {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger != nil {
		if err != nil {
			c.logger.Error(msg, "error", err)
		} else {
			c.logger.Error(msg)
		}
	}
}

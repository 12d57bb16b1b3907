package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	apperrors "github.com/swapstay/swapsync/pkg/errors"
	"github.com/swapstay/swapsync/pkg/logger"
)

// EventPoller supplies events over HTTP when the realtime channel is down.
type EventPoller interface {
	PollEvents(ctx context.Context, since time.Time) ([]models.StreamEvent, error)
}

// EventHandler receives stream events in arrival order.
type EventHandler func(models.StreamEvent)

// StateHandler receives connection state transitions.
type StateHandler func(models.ConnectionState)

// Options configure a connection manager.
type Options struct {
	StreamURL string
	Token     string

	// Dialer defaults to the websocket transport when nil.
	Dialer Dialer
	// Poller backs fallback polling. Fallback is skipped when nil.
	Poller EventPoller

	HeartbeatInterval time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	// FallbackAfter is the number of consecutive connection failures before
	// switching to polling.
	FallbackAfter int
	PollInterval  time.Duration
	ErrorRingSize int
}

func (o *Options) applyDefaults() {
	if o.Dialer == nil {
		o.Dialer = NewWebsocketDialer()
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = time.Second
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = 30 * time.Second
	}
	if o.FallbackAfter <= 0 {
		o.FallbackAfter = 3
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
}

// HealthSnapshot is a point-in-time view of the channel for diagnostics.
type HealthSnapshot struct {
	Status            models.ConnectionState `json:"status"`
	IsConnected       bool                   `json:"is_connected"`
	Uptime            time.Duration          `json:"uptime"`
	RecentErrorCount  int                    `json:"recent_error_count"`
	FallbackActive    bool                   `json:"fallback_active"`
	SubscriptionCount int                    `json:"subscription_count"`
}

// Manager owns the realtime channel lifecycle: dialing, heartbeats, reconnect
// backoff, and the polling fallback. A single reader goroutine delivers events
// to subscribers in arrival order.
type Manager struct {
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	state       models.ConnectionState
	conn        Conn
	running     bool
	cancel      context.CancelFunc
	connectedAt time.Time
	subs        map[int]EventHandler
	stateSubs   map[int]StateHandler
	nextSubID   int
	pongWaiters []chan struct{}
	pollCancel  context.CancelFunc
	pollDone    chan struct{}
	pollCursor  time.Time

	wg     sync.WaitGroup
	errors *errorRing
}

// NewManager constructs a connection manager. The manager starts idle; call
// Connect to establish the channel.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{
		opts:      opts,
		log:       logger.WithModule("conn"),
		state:     models.ConnectionIdle,
		subs:      map[int]EventHandler{},
		stateSubs: map[int]StateHandler{},
		errors:    newErrorRing(opts.ErrorRingSize),
	}
}

// Connect starts the connection lifecycle. Calling Connect while running is a
// no-op. A manager in the terminal error state must be reinitialized first.
func (m *Manager) Connect(ctx context.Context) error {
	if m == nil {
		return apperrors.ErrTransportConfig
	}
	ctx = ensureContext(ctx)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	if m.state == models.ConnectionError {
		m.mu.Unlock()
		return fmt.Errorf("conn: manager requires reinitialization after terminal error")
	}
	m.mu.Unlock()

	if err := validateEndpoint(m.opts.StreamURL); err != nil {
		m.setState(models.ConnectionError)
		m.errors.add(err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.setState(models.ConnectionConnecting)
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Disconnect stops the lifecycle and returns the manager to idle. The terminal
// error state is preserved.
func (m *Manager) Disconnect() {
	if m == nil {
		return
	}

	m.mu.Lock()
	running := m.running
	cancel := m.cancel
	conn := m.conn
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if !running {
		return
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	m.exitFallback()
	m.wg.Wait()

	if m.State() != models.ConnectionError {
		m.setState(models.ConnectionIdle)
	}
}

// Reinitialize tears the manager down and clears the terminal error state so
// Connect may be called again.
func (m *Manager) Reinitialize() {
	if m == nil {
		return
	}
	m.Disconnect()
	m.setState(models.ConnectionIdle)
}

// Subscribe registers a handler for stream events and returns a disposer.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if m == nil || handler == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs[id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SubscribeState registers a handler for connection state changes.
func (m *Manager) SubscribeState(handler StateHandler) func() {
	if m == nil || handler == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.stateSubs[id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.stateSubs, id)
		m.mu.Unlock()
	}
}

// State returns the current connection state.
func (m *Manager) State() models.ConnectionState {
	if m == nil {
		return models.ConnectionIdle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current state as a string for health probes.
func (m *Manager) Status() string {
	return string(m.State())
}

// RecentErrorCount returns how many errors the bounded ring currently holds.
func (m *Manager) RecentErrorCount() int {
	if m == nil {
		return 0
	}
	return m.errors.len()
}

// RecentErrors returns captured transport errors, newest first.
func (m *Manager) RecentErrors() []ErrorRecord {
	if m == nil {
		return nil
	}
	return m.errors.snapshot()
}

// Health returns a snapshot of channel health for the diagnostics surface.
func (m *Manager) Health() HealthSnapshot {
	if m == nil {
		return HealthSnapshot{Status: models.ConnectionIdle}
	}

	m.mu.Lock()
	state := m.state
	connectedAt := m.connectedAt
	subscriptions := len(m.subs) + len(m.stateSubs)
	fallback := m.pollCancel != nil
	m.mu.Unlock()

	var uptime time.Duration
	if state == models.ConnectionConnected && !connectedAt.IsZero() {
		uptime = time.Since(connectedAt)
	}

	return HealthSnapshot{
		Status:            state,
		IsConnected:       state == models.ConnectionConnected,
		Uptime:            uptime,
		RecentErrorCount:  m.errors.len(),
		FallbackActive:    fallback,
		SubscriptionCount: subscriptions,
	}
}

// TestConnection measures round-trip latency to the stream endpoint. When the
// channel is live it measures a ping/pong exchange; otherwise it dials a
// throwaway connection.
func (m *Manager) TestConnection(ctx context.Context) (time.Duration, error) {
	if m == nil {
		return 0, apperrors.ErrTransportConfig
	}
	ctx = ensureContext(ctx)
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	start := time.Now()
	if state == models.ConnectionConnected && conn != nil {
		waiter := m.addPongWaiter()
		if err := conn.WriteJSON(pingFrame()); err != nil {
			return 0, apperrors.ErrTransportClosed.WithInternal(err)
		}
		select {
		case <-waiter:
			latency := time.Since(start)
			monitoring.ObserveProbeLatency(latency)
			return latency, nil
		case <-ctx.Done():
			return 0, apperrors.ErrProbeTimeout
		}
	}

	probe, err := m.opts.Dialer.Dial(ctx, m.opts.StreamURL, m.header())
	if err != nil {
		return 0, err
	}
	defer probe.Close()

	if err := probe.WriteJSON(pingFrame()); err != nil {
		return 0, apperrors.ErrTransportClosed.WithInternal(err)
	}

	done := make(chan error, 1)
	go func() {
		for {
			data, readErr := probe.ReadMessage()
			if readErr != nil {
				done <- readErr
				return
			}
			if isPong(data) {
				done <- nil
				return
			}
		}
	}()

	select {
	case err := <-done:
		if err != nil {
			return 0, apperrors.ErrTransportClosed.WithInternal(err)
		}
		latency := time.Since(start)
		monitoring.ObserveProbeLatency(latency)
		return latency, nil
	case <-ctx.Done():
		probe.Close()
		return 0, apperrors.ErrProbeTimeout
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.errors.add(err)
			m.log.Warn("stream dial failed", zap.Error(err), zap.Int("failures", failures+1))
			failures++
			monitoring.RecordReconnectAttempt()
			if failures >= m.opts.FallbackAfter {
				m.enterFallback(ctx)
			} else {
				m.setState(models.ConnectionReconnecting)
			}
			if !m.wait(ctx, nextBackoff(failures-1, m.opts.BackoffMin, m.opts.BackoffMax)) {
				return
			}
			continue
		}

		failures = 0
		m.exitFallback()
		m.attach(conn)
		m.log.Info("stream connected", zap.String("url", m.opts.StreamURL))

		hbCtx, stopHeartbeat := context.WithCancel(ctx)
		go m.heartbeat(hbCtx, conn)
		m.readLoop(conn)
		stopHeartbeat()
		m.detach(conn)

		if ctx.Err() != nil {
			return
		}
		m.setState(models.ConnectionReconnecting)
		if !m.wait(ctx, nextBackoff(0, m.opts.BackoffMin, m.opts.BackoffMax)) {
			return
		}
	}
}

func (m *Manager) dial(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.opts.Dialer.Dial(dialCtx, m.opts.StreamURL, m.header())
}

func (m *Manager) header() http.Header {
	header := http.Header{}
	if m.opts.Token != "" {
		header.Set("Authorization", "Bearer "+m.opts.Token)
	}
	return header
}

// readLoop is the single reader for the active connection. Events reach
// subscribers in the order frames arrive.
func (m *Manager) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.errors.add(apperrors.ErrTransportClosed.WithInternal(err))
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) handleFrame(data []byte) {
	if isPong(data) {
		monitoring.RecordHeartbeat("pong")
		m.notifyPong()
		return
	}

	var event models.StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		m.log.Debug("dropping malformed frame", zap.Error(err))
		return
	}
	if event.Type == "" {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	m.dispatch(event)
}

func (m *Manager) dispatch(event models.StreamEvent) {
	m.mu.Lock()
	if event.OccurredAt.After(m.pollCursor) {
		m.pollCursor = event.OccurredAt
	}
	handlers := make([]EventHandler, 0, len(m.subs))
	for _, handler := range m.subs {
		handlers = append(handlers, handler)
	}
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (m *Manager) heartbeat(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			waiter := m.addPongWaiter()
			if err := conn.WriteJSON(pingFrame()); err != nil {
				conn.Close()
				return
			}
			select {
			case <-waiter:
			case <-time.After(m.opts.HeartbeatInterval):
				monitoring.RecordHeartbeat("timeout")
				m.errors.add(apperrors.ErrProbeTimeout)
				m.log.Warn("heartbeat timed out, recycling connection")
				conn.Close()
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *Manager) enterFallback(ctx context.Context) {
	m.mu.Lock()
	if m.pollCancel != nil {
		m.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.pollCancel = cancel
	m.pollDone = done
	m.mu.Unlock()

	m.setState(models.ConnectionFallback)
	m.log.Warn("entering fallback polling mode")
	m.wg.Add(1)
	go m.pollLoop(pollCtx, done)
}

// exitFallback stops polling and waits for an in-flight poll to finish, so no
// polled batch is dispatched once the live channel is attached.
func (m *Manager) exitFallback() {
	m.mu.Lock()
	cancel := m.pollCancel
	done := m.pollDone
	m.pollCancel = nil
	m.pollDone = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		if done != nil {
			<-done
		}
		m.log.Info("leaving fallback polling mode")
	}
}

func (m *Manager) pollLoop(ctx context.Context, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)
	if m.opts.Poller == nil {
		return
	}

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	m.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	m.mu.Lock()
	since := m.pollCursor
	m.mu.Unlock()

	events, err := m.opts.Poller.PollEvents(ctx, since)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		monitoring.RecordFallbackPoll("failure")
		m.errors.add(err)
		m.log.Warn("fallback poll failed", zap.Error(err))
		return
	}

	monitoring.RecordFallbackPoll("success")
	for _, event := range events {
		if event.OccurredAt.IsZero() {
			event.OccurredAt = time.Now()
		}
		m.dispatch(event)
	}
}

func (m *Manager) attach(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.connectedAt = time.Now()
	m.mu.Unlock()
	m.setState(models.ConnectionConnected)
}

func (m *Manager) detach(conn Conn) {
	conn.Close()
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setState(next models.ConnectionState) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = next
	handlers := make([]StateHandler, 0, len(m.stateSubs))
	for _, handler := range m.stateSubs {
		handlers = append(handlers, handler)
	}
	m.mu.Unlock()

	monitoring.RecordConnectionTransition(string(prev), string(next))
	m.log.Info("connection state changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	for _, handler := range handlers {
		handler(next)
	}
}

func (m *Manager) addPongWaiter() chan struct{} {
	waiter := make(chan struct{}, 1)
	m.mu.Lock()
	m.pongWaiters = append(m.pongWaiters, waiter)
	m.mu.Unlock()
	return waiter
}

func (m *Manager) notifyPong() {
	m.mu.Lock()
	waiters := m.pongWaiters
	m.pongWaiters = nil
	m.mu.Unlock()

	for _, waiter := range waiters {
		select {
		case waiter <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func pingFrame() map[string]string {
	return map[string]string{"action": "ping"}
}

func isPong(data []byte) bool {
	var control struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &control); err != nil {
		return false
	}
	return control.Event == "pong"
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

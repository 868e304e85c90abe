package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/rewards-realtime/internal/metrics"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records connection metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithStatus publishes the connected flag to sink.
func WithStatus(sink StatusSink) Option {
	return func(m *Manager) { m.status = sink }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// Manager owns the single realtime connection. All lifecycle decisions are
// made by one event-loop goroutine; socket goroutines, timers, and API calls
// only post events to it.
type Manager struct {
	cfg     ManagerConfig
	handler Handler
	logger  *slog.Logger
	metrics *metrics.Collector
	status  StatusSink
	dialer  Dialer

	inbox    chan event
	stopped  chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	wg       sync.WaitGroup

	// Owned by the event loop
	fsm     machine
	sockets map[uint64]*socket
	timers  map[uint64]*time.Timer

	// Read by Send and Connected from any goroutine
	live atomic.Pointer[socket]

	snapMu sync.Mutex
	snap   ManagerStats

	socketsOpened atomic.Int64
	reconnects    atomic.Int64
	sendsDropped  atomic.Int64
}

// NewManager creates a Connection Manager. Frames from the live socket are
// passed to handler in arrival order; its reply is written back on the same
// socket.
func NewManager(cfg ManagerConfig, handler Handler, opts ...Option) *Manager {
	defaults := DefaultManagerConfig()
	if cfg.ConnectPath == "" {
		cfg.ConnectPath = defaults.ConnectPath
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff.Base = defaults.Backoff.Base
	}
	if cfg.Backoff.Max <= 0 {
		cfg.Backoff.Max = defaults.Backoff.Max
	}
	if cfg.Backoff.Multiplier < 1 {
		cfg.Backoff.Multiplier = defaults.Backoff.Multiplier
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaults.EventBuffer
	}

	m := &Manager{
		cfg:     cfg,
		handler: handler,
		logger:  slog.Default(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		},
		inbox:   make(chan event, cfg.EventBuffer),
		stopped: make(chan struct{}),
		fsm:     newMachine(cfg.Backoff),
		sockets: make(map[uint64]*socket),
		timers:  make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.snap.State = StateIdle
	return m
}

// Start launches the event loop. Credentials set before Start are queued
// and applied once the loop runs.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	m.metrics.SetState(StateIdle.String())
	m.metrics.SetConnected(false)

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("connection manager started",
		"base_url", m.cfg.BaseURL,
		"connect_path", m.cfg.ConnectPath,
	)
	return nil
}

// Stop tears down the connection and waits for the event loop to exit.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	m.stopOnce.Do(func() { close(m.stopped) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
		return ctx.Err()
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// SetCredential drives the lifecycle: a non-empty token opens (or reopens)
// the connection, an empty one tears it down.
func (m *Manager) SetCredential(token string) {
	m.post(credentialChanged{token: token})
}

// Teardown closes the connection, cancels any reconnect, and returns to Idle.
// A later SetCredential starts over.
func (m *Manager) Teardown() {
	m.post(teardownRequested{})
}

// Send writes v on the open connection. Strings and byte slices are sent
// verbatim; other values are JSON encoded. It does nothing unless the
// connection is open.
func (m *Manager) Send(v any) {
	s := m.live.Load()
	if s == nil {
		m.sendsDropped.Add(1)
		m.metrics.SendDropped()
		m.logger.Debug("send dropped, not connected")
		return
	}

	data, err := protocol.Encode(v)
	if err != nil {
		m.logger.Warn("send dropped, encode failed", "error", err)
		return
	}

	if err := s.send(data); err != nil {
		m.sendsDropped.Add(1)
		m.metrics.SendDropped()
		m.logger.Debug("send failed", "error", err)
		return
	}
	m.metrics.Sent()
}

// Connected reports whether the connection is open.
func (m *Manager) Connected() bool {
	return m.live.Load() != nil
}

// State returns the lifecycle state as of the last processed event.
func (m *Manager) State() State {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	return m.snap.State
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.snapMu.Lock()
	stats := m.snap
	m.snapMu.Unlock()

	stats.SocketsOpened = m.socketsOpened.Load()
	stats.Reconnects = m.reconnects.Load()
	stats.SendsDropped = m.sendsDropped.Load()
	return stats
}

// post queues ev for the event loop. It gives up once the manager stops.
func (m *Manager) post(ev event) {
	select {
	case m.inbox <- ev:
	case <-m.stopped:
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopped:
			return
		case ev := <-m.inbox:
			m.dispatch(ev)
		}
	}
}

// shutdown runs on the loop goroutine after it stops reading events.
func (m *Manager) shutdown() {
	m.dispatch(teardownRequested{})

	// Sockets already forgotten by the machine may still be dialing.
	for tag, s := range m.sockets {
		s.close()
		delete(m.sockets, tag)
	}
	for seq, t := range m.timers {
		t.Stop()
		delete(m.timers, seq)
	}
}

func (m *Manager) dispatch(ev event) {
	if msg, ok := ev.(socketMessage); ok {
		m.deliver(msg)
		return
	}

	prev := m.fsm.state
	var effects []effect
	m.fsm, effects = m.fsm.step(ev)

	for _, eff := range effects {
		m.apply(eff)
	}

	if m.fsm.state != prev {
		m.logger.Debug("connection state changed",
			"from", prev.String(),
			"to", m.fsm.state.String(),
			"attempt", m.fsm.attempt,
		)
		m.metrics.SetState(m.fsm.state.String())
	}
	m.snapshot()
}

// deliver hands a frame from the live socket to the handler and writes the
// reply back on that socket.
func (m *Manager) deliver(msg socketMessage) {
	if !m.fsm.live(msg.tag) {
		return
	}
	s := m.sockets[msg.tag]
	if s == nil || m.handler == nil {
		return
	}

	reply := m.handler.Handle(msg.data)
	if reply == nil {
		return
	}
	if err := s.send(reply); err != nil {
		m.logger.Debug("failed to send reply", "error", err)
	}
}

func (m *Manager) apply(eff effect) {
	switch e := eff.(type) {
	case openSocket:
		m.openSocket(e)

	case closeSocket:
		if s, ok := m.sockets[e.tag]; ok {
			s.close()
			delete(m.sockets, e.tag)
			m.metrics.SocketClosed()
		}

	case startTimer:
		seq := e.seq
		m.timers[seq] = time.AfterFunc(e.delay, func() {
			m.post(timerFired{seq: seq})
		})
		m.reconnects.Add(1)
		m.metrics.ReconnectScheduled(e.delay)
		m.logger.Info("reconnect scheduled",
			"delay", e.delay,
			"attempt", e.attempt,
		)

	case cancelTimer:
		if t, ok := m.timers[e.seq]; ok {
			t.Stop()
			delete(m.timers, e.seq)
		}

	case setConnected:
		if e.connected {
			m.live.Store(m.sockets[m.fsm.sock])
			m.socketsOpened.Add(1)
			m.metrics.SocketOpened()
			m.logger.Info("connection open", "tag", m.fsm.sock)
		} else {
			m.live.Store(nil)
			m.logger.Info("connection lost")
		}
		m.metrics.SetConnected(e.connected)
		if m.status != nil {
			m.status.SetConnected(e.connected)
		}
	}
}

func (m *Manager) openSocket(e openSocket) {
	// Fired timers are dropped from the table here.
	for seq, t := range m.timers {
		t.Stop()
		delete(m.timers, seq)
	}

	url, err := BuildConnectURL(m.cfg.BaseURL, m.cfg.ConnectPath, e.token)
	if err != nil {
		m.logger.Error("failed to build connect url", "error", err)
		// Treat as a failed attempt so backoff applies.
		go m.post(socketClosed{tag: e.tag, err: err})
		return
	}

	s := newSocket(e.tag, m.cfg.Socket, m.dialer, m.inbox, m.stopped, m.logger)
	m.sockets[e.tag] = s
	go s.run(url)

	m.logger.Debug("socket dialing", "tag", e.tag, "socket", s.id.String())
}

func (m *Manager) snapshot() {
	m.snapMu.Lock()
	m.snap.State = m.fsm.state
	m.snap.Connected = m.fsm.connected
	m.snap.Attempt = m.fsm.attempt
	m.snap.SocketTag = m.fsm.sock
	m.snap.TimerPending = m.fsm.timer != 0
	m.snapMu.Unlock()
}

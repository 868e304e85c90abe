package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/rewards-realtime/internal/version"
)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// socket is one WebSocket connection attempt. It reports its lifecycle to
// the manager's inbox tagged with its tag, and never touches manager state.
type socket struct {
	tag    uint64
	id     uuid.UUID
	cfg    SocketConfig
	dialer Dialer
	logger *slog.Logger

	// Manager inbox and the channel closed when the manager stops
	inbox   chan<- event
	stopped <-chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Write serialization
	writeMu sync.Mutex

	// State
	mu       sync.Mutex
	conn     *websocket.Conn
	lastSeen time.Time
	closed   bool
	err      error
}

func newSocket(tag uint64, cfg SocketConfig, dialer Dialer, inbox chan<- event, stopped <-chan struct{}, logger *slog.Logger) *socket {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	return &socket{
		tag:     tag,
		id:      id,
		cfg:     cfg,
		dialer:  dialer,
		logger:  logger.With("socket", id.String(), "tag", tag),
		inbox:   inbox,
		stopped: stopped,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// run dials, reports the open, and reads until the connection ends.
// It always finishes by reporting socketClosed unless close was called.
func (s *socket) run(url string) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	dialCtx := s.ctx
	if s.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
		defer cancel()
	}

	conn, _, err := s.dialer.DialContext(dialCtx, url, header)
	if err != nil {
		s.logger.Debug("dial failed", "error", err)
		s.report(socketClosed{tag: s.tag, err: err})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.lastSeen = time.Now()
	s.mu.Unlock()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		s.touch()
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	// Server responds to our ping
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	s.report(socketOpened{tag: s.tag})

	go s.heartbeatLoop(conn)
	s.readLoop(conn)
}

// readLoop forwards every text frame to the manager in arrival order.
func (s *socket) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			cause := s.err
			s.mu.Unlock()

			s.logger.Debug("read loop ended", "error", cause)
			s.report(socketClosed{tag: s.tag, err: cause})
			s.cancel()
			return
		}
		s.touch()

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		s.report(socketMessage{tag: s.tag, data: data})
	}
}

// heartbeatLoop pings the server and closes the connection if it goes silent.
func (s *socket) heartbeatLoop(conn *websocket.Conn) {
	if s.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(s.cfg.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}

			s.mu.Lock()
			lastSeen := s.lastSeen
			s.mu.Unlock()

			if s.cfg.ReadTimeout > 0 && time.Since(lastSeen) > s.cfg.ReadTimeout {
				s.logger.Warn("no traffic received, connection stale",
					"last_seen", lastSeen,
					"timeout", s.cfg.ReadTimeout,
				)
				s.mu.Lock()
				s.err = ErrStaleConnection
				s.mu.Unlock()
				conn.Close()
				return
			}
		}
	}
}

// send writes one text frame.
func (s *socket) send(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrAlreadyClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// close stops the socket without blocking. Events it reports afterwards
// are suppressed; the manager has already forgotten this tag.
func (s *socket) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	s.cancel()

	if conn == nil {
		return
	}
	// A Send may hold writeMu until its deadline; the handshake must not
	// stall the caller.
	go func() {
		s.writeMu.Lock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		conn.Close()
	}()
}

func (s *socket) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// report posts ev to the manager unless this socket was closed by the
// manager or the manager has stopped.
func (s *socket) report(ev event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.inbox <- ev:
	case <-s.stopped:
	}
}

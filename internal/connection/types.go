package connection

import (
	"errors"
	"time"

	"github.com/rickgao/rewards-realtime/internal/config"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrEmptyToken      = errors.New("empty token")
)

// Handler processes one inbound text frame and returns the reply to send
// back on the same socket, or nil.
type Handler interface {
	Handle(data []byte) []byte
}

// StatusSink receives the binary connected flag.
type StatusSink interface {
	SetConnected(connected bool)
}

// SocketConfig configures a single WebSocket connection.
type SocketConfig struct {
	HandshakeTimeout time.Duration // Dial + upgrade deadline
	PingInterval     time.Duration // How often we send a control ping
	ReadTimeout      time.Duration // Max silence before the socket is considered stale
	WriteTimeout     time.Duration // Write deadline for sends
}

// DefaultSocketConfig returns sensible defaults.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	BaseURL     string // WebSocket origin, e.g. wss://rewards.example.com/ws
	ConnectPath string // Authenticated connect path, e.g. /connect
	Backoff     Backoff
	Socket      SocketConfig
	EventBuffer int // Event loop inbox size
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ConnectPath: "/connect",
		Backoff:     DefaultBackoff(),
		Socket:      DefaultSocketConfig(),
		EventBuffer: 256,
	}
}

// ManagerConfigFrom maps the realtime section of the agent config.
func ManagerConfigFrom(rc config.RealtimeConfig) ManagerConfig {
	return ManagerConfig{
		BaseURL:     rc.BaseURL,
		ConnectPath: rc.ConnectPath,
		Backoff: Backoff{
			Base:       rc.ReconnectBaseDelay,
			Max:        rc.ReconnectMaxDelay,
			Multiplier: rc.ReconnectMultiplier,
		},
		Socket: SocketConfig{
			HandshakeTimeout: rc.HandshakeTimeout,
			PingInterval:     rc.PingInterval,
			ReadTimeout:      rc.ReadTimeout,
			WriteTimeout:     rc.WriteTimeout,
		},
		EventBuffer: rc.EventBuffer,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State         State
	Connected     bool
	Attempt       int    // Reconnect attempts since the last successful open
	SocketTag     uint64 // Tag of the live or dialing socket, 0 if none
	TimerPending  bool
	SocketsOpened int64
	Reconnects    int64
	SendsDropped  int64
}

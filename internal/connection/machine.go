package connection

import "time"

// State is a connection manager lifecycle state.
type State int

const (
	StateIdle       State = iota // No credential or torn down
	StateConnecting              // Socket created, handshake in flight
	StateOpen                    // Handshake complete
	StateClosed                  // Socket gone, reconnect timer pending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// event is an input to the state machine.
type event interface{ isEvent() }

type credentialChanged struct{ token string }

type teardownRequested struct{}

type socketOpened struct{ tag uint64 }

type socketClosed struct {
	tag uint64
	err error
}

type timerFired struct{ seq uint64 }

// socketMessage never reaches step; the event loop delivers it directly
// when the tag is live.
type socketMessage struct {
	tag  uint64
	data []byte
}

func (credentialChanged) isEvent() {}
func (teardownRequested) isEvent() {}
func (socketOpened) isEvent()      {}
func (socketClosed) isEvent()      {}
func (timerFired) isEvent()        {}
func (socketMessage) isEvent()     {}

// effect is an action the event loop must perform after a step.
type effect interface{ isEffect() }

type openSocket struct {
	tag   uint64
	token string
}

type closeSocket struct{ tag uint64 }

type startTimer struct {
	seq     uint64
	delay   time.Duration
	attempt int // Attempt number this timer will start, 1-based
}

type cancelTimer struct{ seq uint64 }

type setConnected struct{ connected bool }

func (openSocket) isEffect()   {}
func (closeSocket) isEffect()  {}
func (startTimer) isEffect()   {}
func (cancelTimer) isEffect()  {}
func (setConnected) isEffect() {}

// machine is the connection lifecycle state. It is a value: step returns a
// new machine and never performs I/O.
type machine struct {
	backoff Backoff

	state     State
	token     string
	connected bool
	attempt   int    // Failures since the last successful open
	sock      uint64 // Live or dialing socket tag, 0 if none
	timer     uint64 // Pending reconnect timer sequence, 0 if none
	seq       uint64 // Last issued tag or timer sequence
}

func newMachine(b Backoff) machine {
	return machine{backoff: b, state: StateIdle}
}

// live reports whether frames from tag should be delivered.
func (m machine) live(tag uint64) bool {
	return tag != 0 && tag == m.sock && m.state == StateOpen
}

// step applies one event.
func (m machine) step(ev event) (machine, []effect) {
	switch e := ev.(type) {
	case credentialChanged:
		return m.onCredential(e.token)
	case teardownRequested:
		effects := m.teardown()
		return m, effects
	case socketOpened:
		return m.onOpened(e.tag)
	case socketClosed:
		return m.onClosed(e.tag)
	case timerFired:
		return m.onTimer(e.seq)
	}
	return m, nil
}

func (m machine) onCredential(raw string) (machine, []effect) {
	token := CleanToken(raw)

	if token == m.token && m.state != StateIdle {
		return m, nil
	}

	effects := m.teardown()
	m.token = token
	if token != "" {
		effects = append(effects, m.open()...)
	}
	return m, effects
}

func (m machine) onOpened(tag uint64) (machine, []effect) {
	if tag != m.sock || m.state != StateConnecting {
		return m, nil
	}

	m.state = StateOpen
	m.attempt = 0
	m.connected = true
	return m, []effect{setConnected{connected: true}}
}

func (m machine) onClosed(tag uint64) (machine, []effect) {
	if tag == 0 || tag != m.sock {
		return m, nil
	}

	var effects []effect
	if m.connected {
		m.connected = false
		effects = append(effects, setConnected{connected: false})
	}
	effects = append(effects, closeSocket{tag: tag})
	m.sock = 0

	if m.token == "" {
		m.state = StateIdle
		m.attempt = 0
		return m, effects
	}

	m.state = StateClosed
	delay := m.backoff.Delay(m.attempt)
	m.attempt++
	m.seq++
	m.timer = m.seq
	effects = append(effects, startTimer{seq: m.timer, delay: delay, attempt: m.attempt})
	return m, effects
}

func (m machine) onTimer(seq uint64) (machine, []effect) {
	if seq == 0 || seq != m.timer {
		return m, nil
	}
	m.timer = 0

	if m.token == "" {
		m.state = StateIdle
		m.attempt = 0
		return m, nil
	}
	return m, m.open()
}

// open issues a new socket tag for the current token.
func (m *machine) open() []effect {
	m.seq++
	m.sock = m.seq
	m.state = StateConnecting
	return []effect{openSocket{tag: m.sock, token: m.token}}
}

// teardown cancels the timer, closes the socket, and returns to Idle.
func (m *machine) teardown() []effect {
	var effects []effect
	if m.timer != 0 {
		effects = append(effects, cancelTimer{seq: m.timer})
		m.timer = 0
	}
	if m.connected {
		m.connected = false
		effects = append(effects, setConnected{connected: false})
	}
	if m.sock != 0 {
		effects = append(effects, closeSocket{tag: m.sock})
		m.sock = 0
	}
	m.attempt = 0
	m.state = StateIdle
	return effects
}

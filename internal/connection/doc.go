// Package connection implements the realtime Connection Manager.
//
// The Connection Manager:
//   - Owns at most one authenticated WebSocket connection at a time
//   - Follows the credential: a new token replaces the connection, an empty one tears it down
//   - Reconnects with exponential backoff (1s doubling, capped at 30s) and never gives up
//   - Hands every inbound frame to a Handler in arrival order and writes back its reply
//   - Sends outbound frames only while open; otherwise they are dropped silently
//
// State transitions live in machine.step, a pure function from (state, event)
// to (state, effects). Manager runs a single event loop that feeds socket,
// timer, and API events through step and executes the returned effects, so
// no two transitions ever interleave. Every socket carries a tag and every
// timer a sequence number; events from superseded sockets or cancelled timers
// are dropped by the machine.
package connection
